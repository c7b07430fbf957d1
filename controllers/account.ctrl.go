package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
	"github.com/getHush/hushhub.go/lib/responses"
	"github.com/getHush/hushhub.go/lib/service"
)

// AccountController : Account Controller struct
type AccountController struct {
	svc *service.HushhubService
}

func NewAccountController(svc *service.HushhubService) *AccountController {
	return &AccountController{svc: svc}
}

type AccountResponse struct {
	Pubkey              string `json:"pubkey"`
	Npub                string `json:"npub"`
	Fingerprint         string `json:"fingerprint"`
	KeyPackagePublished bool   `json:"key_package_published"`
	RelayListsPublished bool   `json:"relay_lists_published"`
}

// ListAccounts : currently registered accounts
func (controller *AccountController) ListAccounts(c echo.Context) error {
	accounts := controller.svc.Registry.List()
	response := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		npub, err := nip19.EncodePublicKey(account.Pubkey)
		if err != nil {
			return err
		}
		response = append(response, AccountResponse{
			Pubkey:              account.Pubkey,
			Npub:                npub,
			Fingerprint:         account.Fingerprint(),
			KeyPackagePublished: account.KeyPackagePublished,
			RelayListsPublished: account.RelayListsPublished,
		})
	}
	return c.JSON(http.StatusOK, response)
}

type FreshnessResponse struct {
	AccountPubkey string `json:"account_pubkey"`
	Kinds         []int  `json:"kinds"`
	LatestSeenAt  int64  `json:"latest_seen_at"`
	HasProcessed  bool   `json:"has_processed"`
}

// Freshness : newest processed event timestamp for the account over a kind
// set, e.g. ?kinds=10002,10050. Defaults to the relay-list kinds, the query
// background resync cares about most.
func (controller *AccountController) Freshness(c echo.Context) error {
	pubkey := c.Param("pubkey")
	if controller.svc.Registry.GetByPubkey(pubkey) == nil {
		return c.JSON(responses.AccountNotFoundError.HttpStatusCode, responses.AccountNotFoundError)
	}

	kinds := []int{common.KindRelayListMetadata, common.KindInboxRelays, common.KindKeyPackageRelays}
	if raw := c.QueryParam("kinds"); raw != "" {
		kinds = kinds[:0]
		for _, part := range strings.Split(raw, ",") {
			kind, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return c.JSON(responses.BadArgumentsError.HttpStatusCode, responses.BadArgumentsError)
			}
			kinds = append(kinds, kind)
		}
	}

	latest, has, err := controller.svc.LatestProcessedAt(c.Request().Context(), pubkey, kinds)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &FreshnessResponse{
		AccountPubkey: pubkey,
		Kinds:         kinds,
		LatestSeenAt:  latest,
		HasProcessed:  has,
	})
}

// Notifications : most recent notifications for the account
func (controller *AccountController) Notifications(c echo.Context) error {
	pubkey := c.Param("pubkey")
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(responses.BadArgumentsError.HttpStatusCode, responses.BadArgumentsError)
		}
		limit = parsed
	}

	notifications := []models.Notification{}
	err := controller.svc.DB.NewSelect().
		Model(&notifications).
		Where("account_pubkey = ?", pubkey).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notifications)
}
