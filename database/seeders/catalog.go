package seeders

import (
	"context"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/repositories"
)

func init() {
	Register("catalog", SeedCatalog)
}

// StarterMenu is written by SeedCatalog into an empty catalog.
var StarterMenu = []models.Product{
	{Name: "Espresso", Description: "Double shot", Price: 2.5, Stock: 40, IsAvailable: true},
	{Name: "Flat White", Description: "Whole milk, double shot", Price: 3.8, Stock: 30, IsAvailable: true},
	{Name: "Matcha Latte", Description: "Ceremonial grade", Price: 4.2, Stock: 20, IsAvailable: true},
	{Name: "Almond Croissant", Price: 3.2, Stock: 12, IsAvailable: true},
}

// SeedCatalog adds the starter menu unless products already exist.
func SeedCatalog(ctx context.Context, repos *repositories.Set) error {
	existing, err := repos.Products.All(ctx, false)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range StarterMenu {
		if err := repos.Products.Save(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
