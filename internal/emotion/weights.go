package emotion

import "fmt"

// GenreWeight says how strongly a genre is favoured for an emotion.
type GenreWeight struct {
	Genre  string  `json:"genre"`
	Weight float64 `json:"weight"` // In (0, 1]
}

// table is read-only after init. Weights hands out copies.
var table = map[Emotion][]GenreWeight{
	Happy: {
		{"Comedy", 1.0},
		{"Animation", 0.8},
		{"Adventure", 0.7},
		{"Romance", 0.6},
		{"Family", 0.5},
	},
	Sad: {
		{"Drama", 1.0},
		{"Romance", 0.8},
		{"Documentary", 0.6},
		{"Music", 0.5},
		{"Animation", 0.4},
	},
	Angry: {
		{"Action", 1.0},
		{"Adventure", 0.8},
		{"Science Fiction", 0.7},
		{"Comedy", 0.6},
		{"Sport", 0.5},
	},
	Surprised: {
		{"Thriller", 1.0},
		{"Mystery", 0.9},
		{"Science Fiction", 0.8},
		{"Adventure", 0.7},
		{"Fantasy", 0.6},
	},
	Neutral: {
		{"Action", 0.8},
		{"Adventure", 0.8},
		{"Comedy", 0.8},
		{"Drama", 0.8},
		{"Science Fiction", 0.8},
		{"Romance", 0.8},
	},
}

func init() {
	if err := checkTable(table); err != nil {
		panic(err)
	}
}

// checkTable verifies the table covers every emotion with usable weights.
func checkTable(t map[Emotion][]GenreWeight) error {
	for _, e := range all {
		row, ok := t[e]
		if !ok || len(row) == 0 {
			return fmt.Errorf("emotion %q has no genre weights", e)
		}
		for _, gw := range row {
			if gw.Genre == "" {
				return fmt.Errorf("emotion %q has a blank genre", e)
			}
			if gw.Weight <= 0 || gw.Weight > 1 {
				return fmt.Errorf("emotion %q genre %q weight %v outside (0,1]", e, gw.Genre, gw.Weight)
			}
		}
	}
	return nil
}

// Weights returns a copy of the genre weights for e, or nil if e is invalid.
func Weights(e Emotion) []GenreWeight {
	row, ok := table[e]
	if !ok {
		return nil
	}
	out := make([]GenreWeight, len(row))
	copy(out, row)
	return out
}
