package editor

import "math"

// RGB это цвет с компонентами в [0, 1]
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Lighting это освещение сцены редактора
type Lighting struct {
	Ambient    RGB `json:"ambient"`
	Background RGB `json:"background"`
	Sunlight   RGB `json:"sunlight"`
	Channel1   RGB `json:"channel1"`
	Channel2   RGB `json:"channel2"`
	Channel3   RGB `json:"channel3"`
}

func DefaultLighting() Lighting {
	return Lighting{
		Ambient:  RGB{R: 0.02, G: 0.02, B: 0.02},
		Sunlight: RGB{R: 0.75, G: 0.75, B: 0.75},
		Channel1: RGB{R: 0.75, G: 0.75, B: 0.75},
	}
}

// Clamp приводит все компоненты к [0, 1]
func (l Lighting) Clamp() Lighting {
	for _, c := range []*RGB{&l.Ambient, &l.Background, &l.Sunlight, &l.Channel1, &l.Channel2, &l.Channel3} {
		c.R = clamp01(c.R)
		c.G = clamp01(c.G)
		c.B = clamp01(c.B)
	}
	return l
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}
