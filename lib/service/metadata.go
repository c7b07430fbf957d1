package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/nbd-wtf/go-nostr"

	"github.com/getHush/hushhub.go/db/models"
)

type profileContent struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	About       string `json:"about"`
	Picture     string `json:"picture"`
	Nip05       string `json:"nip05"`
}

// HandleMetadataEvent caches kind-0 profile metadata. With a nil account the
// profile lands in the shared, account-independent cache. Older events never
// overwrite a newer cached profile — relays redeliver in arbitrary order.
func (svc *HushhubService) HandleMetadataEvent(ctx context.Context, ev *nostr.Event, account *models.Account) error {
	accountPubkey := ""
	if account != nil {
		accountPubkey = account.Pubkey
	}

	var content profileContent
	if err := json.Unmarshal([]byte(ev.Content), &content); err != nil {
		// malformed input: drop, a retry would fail the same way
		svc.Logger.Errorf("Unparseable profile metadata in event %s: %v", ev.ID, err)
		return nil
	}

	existing := models.Profile{}
	query := svc.DB.NewSelect().Model(&existing).Where("pubkey = ?", ev.PubKey)
	if accountPubkey == "" {
		query = query.Where("account_pubkey IS NULL")
	} else {
		query = query.Where("account_pubkey = ?", accountPubkey)
	}
	err := query.Limit(1).Scan(ctx)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if err == nil {
		if existing.EventCreatedAt >= int64(ev.CreatedAt) {
			svc.Logger.Debugf("Cached profile for %s is newer than event %s, keeping it", ev.PubKey, ev.ID)
			return nil
		}
		existing.Name = content.Name
		existing.DisplayName = content.DisplayName
		existing.About = content.About
		existing.Picture = content.Picture
		existing.Nip05 = content.Nip05
		existing.EventCreatedAt = int64(ev.CreatedAt)
		_, err = svc.DB.NewUpdate().Model(&existing).WherePK().Exec(ctx)
		return err
	}

	profile := models.Profile{
		Pubkey:         ev.PubKey,
		AccountPubkey:  accountPubkey,
		Name:           content.Name,
		DisplayName:    content.DisplayName,
		About:          content.About,
		Picture:        content.Picture,
		Nip05:          content.Nip05,
		EventCreatedAt: int64(ev.CreatedAt),
	}
	_, err = svc.DB.NewInsert().Model(&profile).Exec(ctx)
	return err
}
