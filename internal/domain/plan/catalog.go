package plan

import "strings"

// CatalogExercise is a known exercise the trainer can pick, with an optional
// illustration path.
type CatalogExercise struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Catalog lists the exercises that ship with illustrations.
var Catalog = []CatalogExercise{
	{Name: "Panca Piana", Image: "images/exercises/panca-piana.jpg"},
	{Name: "Squat", Image: "images/exercises/squat.jpg"},
	{Name: "Stacco", Image: "images/exercises/stacco.jpg"},
	{Name: "Military Press", Image: "images/exercises/military-press.jpg"},
	{Name: "Trazioni", Image: "images/exercises/trazioni.jpg"},
	{Name: "Dip", Image: "images/exercises/dip.jpg"},
	{Name: "Curl Bicipiti", Image: "images/exercises/curl-bicipiti.jpg"},
	{Name: "French Press", Image: "images/exercises/french-press.jpg"},
	{Name: "Lat Machine", Image: "images/exercises/lat-machine.jpg"},
	{Name: "Leg Press", Image: "images/exercises/leg-press.jpg"},
	{Name: "Leg Curl", Image: "images/exercises/leg-curl.jpg"},
	{Name: "Leg Extension", Image: "images/exercises/leg-extension.jpg"},
	{Name: "Calf Raise", Image: "images/exercises/calf-raise.jpg"},
	{Name: "Crunch", Image: "images/exercises/crunch.jpg"},
	{Name: "Plank", Image: "images/exercises/plank.jpg"},
}

// LookupImage returns the catalog image for an exercise name, matched
// case-insensitively. ok is false for exercises not in the catalog.
func LookupImage(name string) (image string, ok bool) {
	name = strings.TrimSpace(name)
	for _, ex := range Catalog {
		if strings.EqualFold(ex.Name, name) {
			return ex.Image, true
		}
	}
	return "", false
}
