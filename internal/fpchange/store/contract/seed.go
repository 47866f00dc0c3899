package contract

import (
	"context"
	"fmt"

	"accai/internal/fpchange/models"
)

// SeedContracts are the development contracts loaded when no database is configured.
var SeedContracts = []models.Contract{
	{
		ID:             1,
		ContractNumber: "10001",
		Product:        "Ahorro Programado",
		ProductPlan:    "Plan Básico",
		DocumentNumber: "123456789",
		DocumentType:   "CC",
		Status:         "Activo",
		CurrentAgentID: "5834",
	},
	{
		ID:             2,
		ContractNumber: "10002",
		Product:        "Fondo de Inversión",
		ProductPlan:    "Premium",
		DocumentNumber: "987654321",
		DocumentType:   "CC",
		Status:         "Activo",
		CurrentAgentID: "5834",
	},
}

// Saver is implemented by stores that accept whole contracts.
type Saver interface {
	Save(ctx context.Context, c models.Contract) error
}

// Seed saves contracts into store.
func Seed(ctx context.Context, store Saver, contracts []models.Contract) error {
	for _, c := range contracts {
		if err := store.Save(ctx, c); err != nil {
			return fmt.Errorf("seed contract %s: %w", c.ContractNumber, err)
		}
	}
	return nil
}
