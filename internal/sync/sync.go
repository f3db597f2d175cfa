package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/logger"
	"github.com/existflow/irontrack/internal/model"
)

// SyncItem represents an item to sync
type SyncItem struct {
	ClientID             string `json:"client_id"`
	Type                 string `json:"type"` // "project" or "entry"
	Name                 string `json:"name,omitempty"`
	Color                string `json:"color,omitempty"`
	IsPinned             bool   `json:"is_pinned,omitempty"`
	ProjectID            string `json:"project_id,omitempty"`
	StartTime            string `json:"start_time,omitempty"`
	EndTime              string `json:"end_time,omitempty"`
	Description          string `json:"description,omitempty"`
	EncryptedDescription string `json:"encrypted_description,omitempty"`
	SyncVersion          int64  `json:"sync_version"`
	Deleted              bool   `json:"deleted"`
}

// SyncPullResponse is the response from pull
type SyncPullResponse struct {
	Items       []SyncItem `json:"items"`
	SyncVersion int64      `json:"sync_version"`
}

// SyncPushResponse is the response from push
type SyncPushResponse struct {
	Updated []SyncItem `json:"updated"`
}

// SyncResult holds sync statistics
type SyncResult struct {
	Pushed int
	Pulled int
}

// LocalOwner is the owner id for every row in the device-local database.
// The server scopes data by account, so pulled rows land under the same
// local owner regardless of which device wrote them.
const LocalOwner = "local"

// SyncMode defines how the sync should be performed
type SyncMode int

const (
	SyncModeMerge         SyncMode = iota // Default: Push local, then pull remote
	SyncModeRemoteToLocal                 // Wipe local, then pull all from remote
	SyncModeLocalToRemote                 // Wipe remote, then push all from local
)

// UseCrypto enables end-to-end encryption of entry descriptions for
// subsequent syncs
func (c *Client) UseCrypto(crypto *Crypto) {
	c.crypto = crypto
}

// Sync performs sync with server based on the specified mode
func (c *Client) Sync(database *db.DB, mode SyncMode) (*SyncResult, error) {
	if !c.IsLoggedIn() {
		return nil, fmt.Errorf("not logged in")
	}

	result := &SyncResult{}

	switch mode {
	case SyncModeRemoteToLocal:
		// 1. Wipe local data
		if err := c.ClearLocal(database); err != nil {
			return nil, fmt.Errorf("failed to clear local data: %w", err)
		}
		// 2. Clear last sync version to pull everything
		c.config.LastSync = 0
		_ = c.saveConfig()

		// 3. Pull remote changes
		pulled, err := c.pullChanges(database)
		if err != nil {
			return nil, fmt.Errorf("pull failed: %w", err)
		}
		result.Pulled = pulled

	case SyncModeLocalToRemote:
		// 1. Wipe remote data
		if err := c.ClearRemote(); err != nil {
			return nil, fmt.Errorf("failed to clear remote data: %w", err)
		}
		// 2. Push local changes
		pushed, err := c.pushChanges(database)
		if err != nil {
			return nil, fmt.Errorf("push failed: %w", err)
		}
		result.Pushed = pushed

	default: // SyncModeMerge
		// 1. Push local changes
		pushed, err := c.pushChanges(database)
		if err != nil {
			return nil, fmt.Errorf("push failed: %w", err)
		}
		result.Pushed = pushed

		// 2. Pull remote changes
		pulled, err := c.pullChanges(database)
		if err != nil {
			return nil, fmt.Errorf("pull failed: %w", err)
		}
		result.Pulled = pulled
	}

	// Mark as synced once after first successful sync
	if !c.config.HasSyncedOnce {
		_ = c.SetSyncedOnce()
	}

	return result, nil
}

// ClearLocal wipes all local projects and entries, keeping credentials
func (c *Client) ClearLocal(database *db.DB) error {
	return database.ClearAll(context.Background())
}

// ClearRemote asks the server to drop this account's data
func (c *Client) ClearRemote() error {
	req, _ := http.NewRequest("DELETE", c.config.ServerURL+"/api/v1/sync", nil)
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error: %s", string(respBody))
	}
	return nil
}

// pushChanges sends local changes to server
func (c *Client) pushChanges(dbConn *db.DB) (int, error) {
	logger.Debug("Starting push changes")
	ctx := context.Background()
	var items []SyncItem

	// Projects changed since last sync (or never synced)
	projects, _ := dbConn.ListProjectsToSync(ctx, c.config.LastSync)

	logger.Debug("Found projects to sync",
		logger.F("count", len(projects)),
		logger.F("lastSync", c.config.LastSync))
	for _, p := range projects {
		items = append(items, SyncItem{
			ClientID:    p.ID,
			Type:        "project",
			Name:        p.Name,
			Color:       p.Color,
			IsPinned:    p.IsPinned,
			SyncVersion: p.SyncVersion,
			Deleted:     p.DeletedAt != nil,
		})
	}

	// Entries changed since last sync
	entries, _ := dbConn.ListEntriesToSync(ctx, c.config.LastSync)
	for _, e := range entries {
		item := SyncItem{
			ClientID:    e.ID,
			Type:        "entry",
			ProjectID:   e.ProjectID,
			StartTime:   e.StartTime.UTC().Format(time.RFC3339Nano),
			SyncVersion: e.SyncVersion,
			Deleted:     e.DeletedAt != nil,
		}
		if e.EndTime != nil {
			item.EndTime = e.EndTime.UTC().Format(time.RFC3339Nano)
		}
		if c.crypto != nil {
			enc, err := c.crypto.Encrypt([]byte(e.Description))
			if err != nil {
				return 0, fmt.Errorf("failed to encrypt entry: %w", err)
			}
			item.EncryptedDescription = enc
		} else {
			item.Description = e.Description
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		logger.Debug("No items to push")
		return 0, nil
	}

	logger.Info("Pushing changes to server", logger.F("itemCount", len(items)))

	body, _ := json.Marshal(map[string]interface{}{
		"items": items,
	})

	url := c.config.ServerURL + "/api/v1/sync"
	logger.Debug("HTTP Request",
		logger.F("method", "POST"),
		logger.F("url", url),
		logger.F("bodySize", len(body)))

	req, _ := http.NewRequest("POST", url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("HTTP request failed", logger.F("error", err), logger.F("url", url))
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	logger.Debug("HTTP Response",
		logger.F("status", resp.StatusCode),
		logger.F("statusText", resp.Status))

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		logger.Error("Push failed",
			logger.F("status", resp.StatusCode),
			logger.F("response", string(respBody)))
		return 0, fmt.Errorf("server error: %s", string(respBody))
	}

	var result SyncPushResponse
	_ = json.NewDecoder(resp.Body).Decode(&result)

	// Record the versions the server assigned so these rows stop counting
	// as dirty.
	for _, item := range result.Updated {
		table := "time_entries"
		if item.Type == "project" {
			table = "projects"
		}
		_ = dbConn.SetSyncVersion(ctx, table, item.ClientID, item.SyncVersion)
	}

	logger.Info("Push completed", logger.F("updated", len(result.Updated)))
	return len(result.Updated), nil
}

// pullChanges gets remote changes from server
func (c *Client) pullChanges(dbConn *db.DB) (int, error) {
	url := fmt.Sprintf("%s/api/v1/sync?since=%d", c.config.ServerURL, c.config.LastSync)

	logger.Debug("Pulling changes from server", logger.F("since", c.config.LastSync))

	req, _ := http.NewRequest("GET", url, nil)
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("HTTP request failed", logger.F("error", err), logger.F("url", url))
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		logger.Error("Pull failed",
			logger.F("status", resp.StatusCode),
			logger.F("response", string(respBody)))
		return 0, fmt.Errorf("server error: %s", string(respBody))
	}

	var result SyncPullResponse
	_ = json.NewDecoder(resp.Body).Decode(&result)

	logger.Info("Received items from server",
		logger.F("itemCount", len(result.Items)),
		logger.F("syncVersion", result.SyncVersion))

	ctx := context.Background()
	applied := 0
	for _, item := range result.Items {
		logger.Debug("Processing sync item",
			logger.F("type", item.Type),
			logger.F("clientID", item.ClientID),
			logger.F("deleted", item.Deleted))

		var err error
		switch item.Type {
		case "project":
			err = c.applyProject(ctx, dbConn, item)
		case "entry":
			err = c.applyEntry(ctx, dbConn, item)
		default:
			continue
		}
		if err != nil {
			logger.Error("Failed to apply sync item",
				logger.F("type", item.Type),
				logger.F("clientID", item.ClientID),
				logger.F("error", err))
			continue
		}
		applied++
	}

	// Update last sync version
	if result.SyncVersion > c.config.LastSync {
		c.config.LastSync = result.SyncVersion
		_ = c.saveConfig()
	}

	logger.Info("Pull completed", logger.F("itemsProcessed", applied))
	return applied, nil
}

// applyProject upserts a remote project row. The server already resolved
// conflicts, so whatever arrives here wins over the local row.
func (c *Client) applyProject(ctx context.Context, dbConn *db.DB, item SyncItem) error {
	if item.Deleted {
		if err := dbConn.DeleteProject(ctx, item.ClientID); err != nil {
			return err
		}
		return dbConn.SetSyncVersion(ctx, "projects", item.ClientID, item.SyncVersion)
	}

	existing, err := dbConn.GetProject(ctx, item.ClientID)
	if err != nil {
		now := time.Now()
		p := model.Project{
			ID:        item.ClientID,
			Name:      item.Name,
			Color:     item.Color,
			OwnerID:   LocalOwner,
			IsPinned:  item.IsPinned,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if p.Color == "" {
			p.Color = model.DefaultColor
		}
		if err := dbConn.CreateProject(ctx, p); err != nil {
			return err
		}
	} else {
		existing.Name = item.Name
		if item.Color != "" {
			existing.Color = item.Color
		}
		existing.IsPinned = item.IsPinned
		existing.UpdatedAt = time.Now()
		if err := dbConn.UpdateProject(ctx, existing); err != nil {
			return err
		}
	}
	return dbConn.SetSyncVersion(ctx, "projects", item.ClientID, item.SyncVersion)
}

func (c *Client) applyEntry(ctx context.Context, dbConn *db.DB, item SyncItem) error {
	if item.Deleted {
		if err := dbConn.DeleteEntry(ctx, item.ClientID); err != nil {
			return err
		}
		return dbConn.SetSyncVersion(ctx, "time_entries", item.ClientID, item.SyncVersion)
	}

	start, err := time.Parse(time.RFC3339Nano, item.StartTime)
	if err != nil {
		return fmt.Errorf("bad start time %q: %w", item.StartTime, err)
	}
	var end *time.Time
	if item.EndTime != "" {
		t, err := time.Parse(time.RFC3339Nano, item.EndTime)
		if err != nil {
			return fmt.Errorf("bad end time %q: %w", item.EndTime, err)
		}
		end = &t
	}

	description := item.Description
	if item.EncryptedDescription != "" {
		if c.crypto == nil {
			return fmt.Errorf("entry is encrypted and no key is configured")
		}
		plain, err := c.crypto.Decrypt(item.EncryptedDescription)
		if err != nil {
			return err
		}
		description = string(plain)
	}

	existing, err := dbConn.GetEntry(ctx, item.ClientID)
	if err != nil {
		now := time.Now()
		e := model.TimeEntry{
			ID:          item.ClientID,
			ProjectID:   item.ProjectID,
			OwnerID:     LocalOwner,
			StartTime:   start,
			EndTime:     end,
			Description: description,
			IsActive:    end == nil,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := dbConn.CreateEntry(ctx, e); err != nil {
			return err
		}
	} else {
		existing.ProjectID = item.ProjectID
		existing.StartTime = start
		existing.EndTime = end
		existing.Description = description
		existing.IsActive = end == nil
		existing.UpdatedAt = time.Now()
		if err := dbConn.UpdateEntry(ctx, existing); err != nil {
			return err
		}
	}
	return dbConn.SetSyncVersion(ctx, "time_entries", item.ClientID, item.SyncVersion)
}
