package postgres

import (
	"context"
	"errors"

	"github.com/goodslice/pizza-fulfillment/internal/domain/kitchen"
	"github.com/goodslice/pizza-fulfillment/internal/ports"
	"github.com/jackc/pgx/v5"
)

// RecipesRepo is the recipe lookup collaborator backed by the recipe
// catalogue table. Consumers snapshot what it returns; the catalogue can
// change without affecting in-flight orders.
type RecipesRepo struct{}

// NewRecipesRepo constructs a new RecipesRepo.
func NewRecipesRepo() ports.RecipeLookup {
	return &RecipesRepo{}
}

// GetRecipe resolves a recipe snapshot, or ports.ErrNotFound.
func (r *RecipesRepo) GetRecipe(ctx context.Context, recipeID string) (*kitchen.RecipeSnapshot, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var snap kitchen.RecipeSnapshot
	err = tx.QueryRow(ctx, `
		SELECT id, name, price, ingredients
		FROM recipes
		WHERE id = $1
	`, recipeID).Scan(&snap.RecipeID, &snap.Name, &snap.Price, &snap.Ingredients)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &snap, nil
}
