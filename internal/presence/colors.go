package presence

import "hash/fnv"

var palette = []string{
	"#F87171", "#FB923C", "#FBBF24", "#A3E635",
	"#34D399", "#22D3EE", "#60A5FA", "#818CF8",
	"#A78BFA", "#E879F9", "#F472B6", "#94A3B8",
}

func paletteIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(palette)))
}

// pickColor returns the hashed palette colour of userID, or the next colour
// not in used. When every colour is taken the hashed one is reused.
func pickColor(userID string, used map[string]bool) string {
	start := paletteIndex(userID)
	for i := 0; i < len(palette); i++ {
		c := palette[(start+i)%len(palette)]
		if !used[c] {
			return c
		}
	}
	return palette[start]
}
