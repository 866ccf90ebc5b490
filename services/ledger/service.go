package ledger

import (
	"context"
	"fmt"

	"github.com/upb/agent-gateway/models"
	"github.com/upb/agent-gateway/repositories"
	"github.com/upb/agent-gateway/services"
	"go.uber.org/zap"
)

// LowBalanceThreshold is the fixed balance, in the same unit as model
// prices, below which a credit notification is raised.
const LowBalanceThreshold = 5.0

// Receipt is the outcome of one metered call
type Receipt struct {
	CostIn           float64 `json:"cost_in"`
	CostOut          float64 `json:"cost_out"`
	CostTotal        float64 `json:"cost_total"`
	RemainingBalance float64 `json:"remaining_balance"`
}

// Service is the usage-metering ledger: it computes cost, records a usage
// line, debits the credit balance and raises a low-balance notification,
// all within one transaction.
type Service struct {
	txMgr         repositories.TransactionManager
	catalog       repositories.CatalogRepository
	credentials   repositories.CredentialRepository
	usage         repositories.UsageRepository
	notifications repositories.NotificationRepository
	logger        *zap.Logger
}

// NewService creates a new ledger service
func NewService(
	txMgr repositories.TransactionManager,
	catalog repositories.CatalogRepository,
	credentials repositories.CredentialRepository,
	usage repositories.UsageRepository,
	notifications repositories.NotificationRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		txMgr:         txMgr,
		catalog:       catalog,
		credentials:   credentials,
		usage:         usage,
		notifications: notifications,
		logger:        logger,
	}
}

// Record meters one successful provider call: it computes the cost from the
// model's unit prices, appends an immutable usage record, debits the
// credential balance, and raises a low-balance notification when the
// refreshed balance crosses below the threshold and none is pending.
// The four steps commit or roll back together; a failure never loses a
// debit or double-debits.
//
// Note the admission pre-check (balance > 0 in the API-key middleware) and
// this debit are separate operations with the provider call in between, so
// two concurrent requests on one credential can both pass the pre-check and
// drive the balance further negative. The transaction here is atomic per
// request; the cross-operation reservation is intentionally not.
func (s *Service) Record(ctx context.Context, credentialID int64, agentID *int64, modelID int64, tokensIn, tokensOut int) (*Receipt, error) {
	receipt := &Receipt{}

	err := s.txMgr.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		model, err := s.catalog.GetModelByID(txCtx, modelID)
		if err != nil {
			return services.Internal("failed to load model prices", err)
		}
		if model == nil {
			return services.NotFound("model", fmt.Sprintf("model with id %d not found", modelID))
		}

		receipt.CostIn = float64(tokensIn) * model.PriceInput
		receipt.CostOut = float64(tokensOut) * model.PriceOutput
		receipt.CostTotal = receipt.CostIn + receipt.CostOut

		rec := &models.UsageRecord{
			CredentialID: credentialID,
			AgentID:      agentID,
			ModelID:      modelID,
			TokensIn:     tokensIn,
			TokensOut:    tokensOut,
			CostIn:       receipt.CostIn,
			CostOut:      receipt.CostOut,
			CostTotal:    receipt.CostTotal,
		}
		if err := s.usage.Insert(txCtx, rec); err != nil {
			return services.Internal("failed to insert usage record", err)
		}

		affected, err := s.credentials.Debit(txCtx, credentialID, receipt.CostTotal)
		if err != nil {
			return services.Internal("failed to debit balance", err)
		}
		if affected == 0 {
			return services.NotFound("credential", fmt.Sprintf("credential with id %d not found", credentialID))
		}

		// Re-read inside the transaction so the notification carries the
		// post-debit balance
		cred, err := s.credentials.GetByID(txCtx, credentialID)
		if err != nil {
			return services.Internal("failed to re-read credential", err)
		}
		if cred == nil {
			return services.NotFound("credential", fmt.Sprintf("credential with id %d not found", credentialID))
		}
		receipt.RemainingBalance = cred.Balance

		if cred.Balance < LowBalanceThreshold {
			if err := s.notifyLowBalance(txCtx, cred); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("usage recorded",
		zap.Int64("credential_id", credentialID),
		zap.Int64("model_id", modelID),
		zap.Int("tokens_in", tokensIn),
		zap.Int("tokens_out", tokensOut),
		zap.Float64("cost_total", receipt.CostTotal),
		zap.Float64("remaining_balance", receipt.RemainingBalance))

	return receipt, nil
}

// notifyLowBalance inserts a notification unless an unacknowledged one
// already exists for the credential (at most one pending per credential)
func (s *Service) notifyLowBalance(ctx context.Context, cred *models.Credential) error {
	exists, err := s.notifications.UnacknowledgedExists(ctx, cred.ID)
	if err != nil {
		return services.Internal("failed to check pending notifications", err)
	}
	if exists {
		return nil
	}

	n := &models.CreditNotification{
		IdentityID:   cred.IdentityID,
		CredentialID: cred.ID,
		Balance:      cred.Balance,
	}
	if err := s.notifications.Insert(ctx, n); err != nil {
		return services.Internal("failed to insert credit notification", err)
	}

	return nil
}

// Stats returns the usage projection grouped by day
func (s *Service) Stats(ctx context.Context, filter models.UsageFilter) ([]models.UsageStat, error) {
	stats, err := s.usage.StatsByDay(ctx, filter)
	if err != nil {
		return nil, services.Internal("failed to load usage stats", err)
	}
	return stats, nil
}

// AcknowledgeNotification marks a credit notification as handled
func (s *Service) AcknowledgeNotification(ctx context.Context, id int64) error {
	affected, err := s.notifications.Acknowledge(ctx, id)
	if err != nil {
		return services.Internal("failed to acknowledge notification", err)
	}
	if affected == 0 {
		return services.ErrNotificationNotFound
	}
	return nil
}
