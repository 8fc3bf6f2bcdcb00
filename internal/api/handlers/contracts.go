package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/api/dto"
	"github.com/hugh/prompthub/internal/api/middleware"
	"github.com/hugh/prompthub/internal/contract"
)

// ContractHandler serves contract administration and member lists. Role
// gates are applied by the router; ownership is checked here through
// contract.Service.Authorize.
type ContractHandler struct {
	contracts *contract.Service
	logger    *slog.Logger
}

func NewContractHandler(contracts *contract.Service, logger *slog.Logger) *ContractHandler {
	return &ContractHandler{contracts: contracts, logger: logger}
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateContractRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	c, err := h.contracts.CreateContract(r.Context(), middleware.GetAccountID(r.Context()), req.MaxMemberCount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.NewContractDTO(c))
}

func (h *ContractHandler) Mine(w http.ResponseWriter, r *http.Request) {
	c, err := h.contracts.ContractOf(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewContractDTO(c))
}

func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	contractID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}
	var req dto.UpdateContractRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	c, err := h.contracts.UpdateMaxMemberCount(r.Context(), middleware.GetAccountID(r.Context()), contractID, req.MaxMemberCount)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewContractDTO(c))
}

func (h *ContractHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	contractID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return
	}

	if err := h.contracts.DestroyContract(r.Context(), middleware.GetAccountID(r.Context()), contractID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Contract deleted"})
}

// authorized resolves the {id} contract and checks the caller may manage it.
func (h *ContractHandler) authorized(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	contractID, ok := pathUUID(w, r, h.logger, "id")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.contracts.Authorize(r.Context(), middleware.GetAccountID(r.Context()), contractID); err != nil {
		writeError(w, h.logger, err)
		return uuid.Nil, false
	}
	return contractID, true
}

func (h *ContractHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.authorized(w, r)
	if !ok {
		return
	}

	members, err := h.contracts.ListMembers(r.Context(), contractID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewAccountDTOs(members))
}

func (h *ContractHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.authorized(w, r)
	if !ok {
		return
	}
	var req dto.AddMemberRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		writeError(w, h.logger, errInvalidID.WithDetails(map[string]string{"field": "account_id"}))
		return
	}

	membership, err := h.contracts.AddMember(r.Context(), contractID, accountID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewMembershipDTO(membership))
}

func (h *ContractHandler) ShowMember(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.authorized(w, r)
	if !ok {
		return
	}
	accountID, ok := pathUUID(w, r, h.logger, "accountID")
	if !ok {
		return
	}

	account, err := h.contracts.ShowMember(r.Context(), contractID, accountID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewAccountDTO(account))
}

func (h *ContractHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.authorized(w, r)
	if !ok {
		return
	}
	accountID, ok := pathUUID(w, r, h.logger, "accountID")
	if !ok {
		return
	}

	if err := h.contracts.RemoveMember(r.Context(), contractID, accountID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Member removed"})
}

// The Own* handlers act on the contract the caller owns.

func (h *ContractHandler) ListOwnMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.contracts.ListOwnMembers(r.Context(), middleware.GetAccountID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewAccountDTOs(members))
}

func (h *ContractHandler) ShowOwnMember(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathUUID(w, r, h.logger, "accountID")
	if !ok {
		return
	}

	account, err := h.contracts.ShowOwnMember(r.Context(), middleware.GetAccountID(r.Context()), accountID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewAccountDTO(account))
}

func (h *ContractHandler) RemoveOwnMember(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathUUID(w, r, h.logger, "accountID")
	if !ok {
		return
	}

	if err := h.contracts.RemoveOwnMember(r.Context(), middleware.GetAccountID(r.Context()), accountID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Member removed"})
}
