package loader

import "github.com/Sternrassler/catalog-viewer/internal/catalog"

// Wire shapes of the PokéAPI v2 resources the loader reads.

type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type resourceList struct {
	Count   int             `json:"count"`
	Results []namedResource `json:"results"`
}

type entityDetail struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Types []struct {
		Slot int           `json:"slot"`
		Type namedResource `json:"type"`
	} `json:"types"`
	Abilities []struct {
		Ability namedResource `json:"ability"`
	} `json:"abilities"`
	Sprites struct {
		FrontDefault *string `json:"front_default"`
	} `json:"sprites"`
}

func (d entityDetail) toEntity() catalog.Entity {
	e := catalog.Entity{
		ID:         d.ID,
		Name:       d.Name,
		Categories: make([]catalog.CategoryRef, 0, len(d.Types)),
		Traits:     make([]string, 0, len(d.Abilities)),
	}
	for _, t := range d.Types {
		e.Categories = append(e.Categories, catalog.CategoryRef{Name: t.Type.Name, URL: t.Type.URL})
	}
	for _, a := range d.Abilities {
		e.Traits = append(e.Traits, a.Ability.Name)
	}
	if d.Sprites.FrontDefault != nil {
		e.ImageURL = *d.Sprites.FrontDefault
	}
	return e
}

type categoryDetail struct {
	Name            string `json:"name"`
	DamageRelations struct {
		DoubleDamageFrom []namedResource `json:"double_damage_from"`
	} `json:"damage_relations"`
}

func (d categoryDetail) toCategoryDetail(ref catalog.CategoryRef) catalog.CategoryDetail {
	weakTo := make([]string, 0, len(d.DamageRelations.DoubleDamageFrom))
	for _, r := range d.DamageRelations.DoubleDamageFrom {
		weakTo = append(weakTo, r.Name)
	}

	name := d.Name
	if name == "" {
		name = ref.Name
	}
	return catalog.CategoryDetail{Name: name, URL: ref.URL, WeakTo: weakTo}
}
