package matching

import (
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
)

// Candidate is an (invoice, transaction) pair eligible for scoring.
type Candidate struct {
	Invoice     models.Invoice
	Transaction models.BankTransaction
}

// Generator enumerates candidate pairs for a tenant: open invoices crossed
// with unmatched transactions in the same currency. Each call recomputes from
// current persisted state; nothing is cached across calls.
type Generator struct {
	invoiceRepo     *repository.InvoiceRepository
	transactionRepo *repository.BankTransactionRepository
}

func NewGenerator(
	invoiceRepo *repository.InvoiceRepository,
	transactionRepo *repository.BankTransactionRepository,
) *Generator {
	return &Generator{
		invoiceRepo:     invoiceRepo,
		transactionRepo: transactionRepo,
	}
}

func (g *Generator) Generate(tenantID uuid.UUID) ([]Candidate, error) {
	invoices, transactions, err := g.Inputs(tenantID)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, inv := range invoices {
		for _, tx := range transactions {
			if inv.Currency != tx.Currency {
				continue
			}
			candidates = append(candidates, Candidate{Invoice: inv, Transaction: tx})
		}
	}
	return candidates, nil
}

// Inputs returns the raw candidate input sets. The selector uses these
// directly so it can fold per invoice without materializing the cross
// product.
func (g *Generator) Inputs(tenantID uuid.UUID) ([]models.Invoice, []models.BankTransaction, error) {
	invoices, err := g.invoiceRepo.ListOpen(tenantID)
	if err != nil {
		return nil, nil, err
	}
	transactions, err := g.transactionRepo.ListUnmatched(tenantID)
	if err != nil {
		return nil, nil, err
	}
	return invoices, transactions, nil
}
