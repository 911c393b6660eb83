package domain

// Hit is one ranked search result.
type Hit struct {
	ID    ImageID `json:"id"`
	Score float64 `json:"score"`
}

// RawImage is the undecoded content of one image handed to an encoder.
type RawImage struct {
	ID     ImageID
	Data   []byte
	Format string // jpeg, png, gif, webp, bmp, tiff
}
