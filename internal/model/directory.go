package model

// City groups bars on the map page.
type City struct {
	ID    int64  `json:"id"`
	Name  string `json:"city"`
	Image string `json:"image,omitempty"`
}

// Bar is a venue listed in the bar directory.
type Bar struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	City    string  `json:"city,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Website string  `json:"website,omitempty"`
	Desc    string  `json:"desc,omitempty"`
}
