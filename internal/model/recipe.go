package model

import "time"

// Ingredient is one line of a generated recipe.
type Ingredient struct {
	Item   string `json:"item"   validate:"required,max=100"`
	Volume string `json:"volume" validate:"max=50"`
}

// Recipe is the shape the AI bartender answers with. The JSON keys match what
// the generator is asked to produce.
type Recipe struct {
	Name        string       `json:"name"       validate:"required,max=100"`
	Ingredients []Ingredient `json:"ingredient" validate:"required,min=1,max=30,dive"`
	Steps       []string     `json:"step"       validate:"required,min=1,max=30,dive,required,max=500"`
}

// SavedRecipe is a generated recipe a user kept on their page.
type SavedRecipe struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Slug      string    `json:"slug"`
	Recipe    Recipe    `json:"recipe"`
	CreatedAt time.Time `json:"createdAt"`
}
