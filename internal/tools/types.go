package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type event struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description"`
	Status          string    `json:"status"`
	BetEndDate      string    `json:"bet_end_date"`
	Categories      []named   `json:"categories"`
	Tags            []named   `json:"tags"`
	Outcomes        []outcome `json:"outcomes"`
	VolumePlayMoney float64   `json:"volume_play_money"`
	VolumeRealMoney float64   `json:"volume_real_money"`
	Wagers          int64     `json:"wagers_count"`
}

type outcome struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price prices `json:"price"`
}

type category struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Parent *named `json:"parent"`
}

// named is an object reference that may arrive as a bare id, a bare title or an object.
type named struct {
	ID    int64
	Title string
}

func (n *named) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '"':
		return json.Unmarshal(b, &n.Title)
	case len(b) > 0 && b[0] == '{':
		var obj struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
			Name  string `json:"name"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		n.ID, n.Title = obj.ID, obj.Title
		if n.Title == "" {
			n.Title = obj.Name
		}
		return nil
	default:
		return json.Unmarshal(b, &n.ID)
	}
}

func (n named) String() string {
	switch {
	case n.Title != "" && n.ID != 0:
		return fmt.Sprintf("%s (id %d)", n.Title, n.ID)
	case n.Title != "":
		return n.Title
	default:
		return fmt.Sprintf("id %d", n.ID)
	}
}

// prices maps currency to price. A bare number is taken as the play-money price.
type prices map[string]float64

func (p *prices) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] != '{' {
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*p = prices{"OOM": v}
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*p = m
	return nil
}
