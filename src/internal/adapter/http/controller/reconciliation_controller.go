package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/http/models"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/adapter/repository/repo_interfaces"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/commons"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/domain"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/resilience"
	"github.com/Glencorse033/arc-stripe-hybrid-playbook/src/internal/usecase/service_interfaces"
)

// ReconciliationController exposes the operator surface: ad-hoc
// reconciliation runs, discrepancy scans, the raw ledger snapshot, and the
// dispatch-path health view (breaker state plus retry backlog).
type ReconciliationController struct {
	reconciliationService service_interfaces.ReconciliationService
	auditService          service_interfaces.AuditService
	ledgerRepo            repo_interfaces.LedgerRepository
	breaker               *resilience.CircuitBreaker
	retryQueue            service_interfaces.RetryQueue
}

func NewReconciliationController(
	reconciliationService service_interfaces.ReconciliationService,
	auditService service_interfaces.AuditService,
	ledgerRepo repo_interfaces.LedgerRepository,
	breaker *resilience.CircuitBreaker,
	retryQueue service_interfaces.RetryQueue,
) *ReconciliationController {
	return &ReconciliationController{
		reconciliationService: reconciliationService,
		auditService:          auditService,
		ledgerRepo:            ledgerRepo,
		breaker:               breaker,
		retryQueue:            retryQueue,
	}
}

func (c *ReconciliationController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(handler http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(handler)
		}
		return handler
	}

	mux.Handle("/reconciliation/run", wrap(c.runReconciliation))
	mux.Handle("/audit/discrepancies", wrap(c.listDiscrepancies))
	mux.Handle("/ledger", wrap(c.loadLedger))
	mux.Handle("/dispatch/status", wrap(c.dispatchStatus))
}

func (c *ReconciliationController) runReconciliation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[domain.ReconciliationReport]("method not allowed"))
		return
	}

	var req models.ReconciliationRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[domain.ReconciliationReport]("invalid request body", err.Error()))
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, commons.ErrorResponse[domain.ReconciliationReport]("validation failed", err.Error()))
		return
	}

	report, err := c.reconciliationService.Reconcile(r.Context(), time.Now().UTC(), req.Source, req.Target)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, commons.ErrorResponse[domain.ReconciliationReport]("failed to run reconciliation"))
		return
	}

	writeJSON(w, http.StatusOK, commons.SuccessResponse("reconciliation complete", report))
}

func (c *ReconciliationController) listDiscrepancies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[[]domain.LedgerEntry]("method not allowed"))
		return
	}

	flagged, err := c.auditService.Scan(r.Context(), time.Now().UTC())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, commons.ErrorResponse[[]domain.LedgerEntry]("failed to scan ledger"))
		return
	}

	writeJSON(w, http.StatusOK, commons.SuccessResponse("discrepancy scan complete", flagged))
}

func (c *ReconciliationController) loadLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[[]domain.LedgerEntry]("method not allowed"))
		return
	}

	entries, err := c.ledgerRepo.Load(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, commons.ErrorResponse[[]domain.LedgerEntry]("failed to load ledger"))
		return
	}

	writeJSON(w, http.StatusOK, commons.SuccessResponse("ledger snapshot", entries))
}

func (c *ReconciliationController) dispatchStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[models.DispatchStatus]("method not allowed"))
		return
	}

	status := models.DispatchStatus{
		Breaker:      c.breaker.Status(),
		RetryBacklog: c.retryQueue.Len(),
	}

	writeJSON(w, http.StatusOK, commons.SuccessResponse("dispatch status", status))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
