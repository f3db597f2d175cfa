package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// SyncItem mirrors the client's wire format for one changed row
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
	UpdatedAt            string `json:"updated_at,omitempty"`
}

// SyncPullResponse is the response for pull requests
type SyncPullResponse struct {
	Items       []SyncItem `json:"items"`
	SyncVersion int64      `json:"sync_version"`
}

// SyncPushRequest is the request for push
type SyncPushRequest struct {
	Items []SyncItem `json:"items"`
}

// SyncPushResponse is the response for push requests
type SyncPushResponse struct {
	Updated []SyncItem `json:"updated"`
}

// handleSyncPull returns items changed since the client's last seen version
func (s *Server) handleSyncPull(c echo.Context) error {
	userID := c.Get("user_id").(string)

	lastVersion := int64(0)
	if v := c.QueryParam("since"); v != "" {
		lastVersion, _ = strconv.ParseInt(v, 10, 64)
	}

	var items []SyncItem

	// Changed projects
	projectRows, err := s.db.Query(`
		SELECT client_id, name, color, is_pinned, sync_version, deleted, updated_at
		FROM projects
		WHERE user_id = $1 AND sync_version > $2
		ORDER BY sync_version ASC`,
		userID, lastVersion,
	)
	if err == nil {
		defer projectRows.Close()
		for projectRows.Next() {
			var item SyncItem
			var updatedAt time.Time
			projectRows.Scan(&item.ClientID, &item.Name, &item.Color, &item.IsPinned,
				&item.SyncVersion, &item.Deleted, &updatedAt)
			item.Type = "project"
			item.UpdatedAt = updatedAt.Format(time.RFC3339)
			items = append(items, item)
		}
	}

	// Changed time entries
	entryRows, err := s.db.Query(`
		SELECT client_id, project_id, start_time, end_time, description,
		       encrypted_description, sync_version, deleted, updated_at
		FROM time_entries
		WHERE user_id = $1 AND sync_version > $2
		ORDER BY sync_version ASC`,
		userID, lastVersion,
	)
	if err == nil {
		defer entryRows.Close()
		for entryRows.Next() {
			var item SyncItem
			var updatedAt time.Time
			entryRows.Scan(&item.ClientID, &item.ProjectID, &item.StartTime, &item.EndTime,
				&item.Description, &item.EncryptedDescription,
				&item.SyncVersion, &item.Deleted, &updatedAt)
			item.Type = "entry"
			item.UpdatedAt = updatedAt.Format(time.RFC3339)
			items = append(items, item)
		}
	}

	// Latest version across both tables
	var maxVersion int64
	s.db.QueryRow(`
		SELECT COALESCE(MAX(sync_version), 0) FROM (
			SELECT sync_version FROM projects WHERE user_id = $1
			UNION ALL
			SELECT sync_version FROM time_entries WHERE user_id = $1
		) combined`,
		userID,
	).Scan(&maxVersion)

	c.Logger().Infof("Sync pull for user %s: %d items since version %d", userID, len(items), lastVersion)

	return c.JSON(http.StatusOK, SyncPullResponse{
		Items:       items,
		SyncVersion: maxVersion,
	})
}

// handleSyncPush accepts changed items from client. Each upsert takes a
// fresh per-user version, so the last writer wins and pulls see the change.
func (s *Server) handleSyncPush(c echo.Context) error {
	userID := c.Get("user_id").(string)

	var req SyncPushRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	var updated []SyncItem

	for _, item := range req.Items {
		switch item.Type {
		case "project":
			var serverVersion int64
			err := s.db.QueryRow(`
				INSERT INTO projects (user_id, client_id, name, color, is_pinned, deleted, sync_version, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6,
					(SELECT COALESCE(MAX(sync_version), 0) + 1 FROM projects WHERE user_id = $1), NOW())
				ON CONFLICT (user_id, client_id) DO UPDATE SET
					name = $3,
					color = $4,
					is_pinned = $5,
					deleted = $6,
					sync_version = (SELECT COALESCE(MAX(sync_version), 0) + 1 FROM projects WHERE user_id = $1),
					updated_at = NOW()
				RETURNING sync_version`,
				userID, item.ClientID, item.Name, item.Color, item.IsPinned, item.Deleted,
			).Scan(&serverVersion)

			if err == nil {
				item.SyncVersion = serverVersion
				updated = append(updated, item)
			} else {
				c.Logger().Error("project upsert error:", err)
			}

		case "entry":
			var serverVersion int64
			err := s.db.QueryRow(`
				INSERT INTO time_entries (user_id, client_id, project_id, start_time, end_time,
					description, encrypted_description, deleted, sync_version, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
					(SELECT COALESCE(MAX(sync_version), 0) + 1 FROM time_entries WHERE user_id = $1), NOW())
				ON CONFLICT (user_id, client_id) DO UPDATE SET
					project_id = $3,
					start_time = $4,
					end_time = $5,
					description = $6,
					encrypted_description = $7,
					deleted = $8,
					sync_version = (SELECT COALESCE(MAX(sync_version), 0) + 1 FROM time_entries WHERE user_id = $1),
					updated_at = NOW()
				RETURNING sync_version`,
				userID, item.ClientID, item.ProjectID, item.StartTime, item.EndTime,
				item.Description, item.EncryptedDescription, item.Deleted,
			).Scan(&serverVersion)

			if err == nil {
				item.SyncVersion = serverVersion
				updated = append(updated, item)
			} else {
				c.Logger().Error("entry upsert error:", err)
			}
		}
	}

	c.Logger().Infof("Sync push for user %s: %d items updated", userID, len(updated))

	return c.JSON(http.StatusOK, SyncPushResponse{Updated: updated})
}

// handleSyncClear drops all synced data for the account, used before a
// local-to-remote replace
func (s *Server) handleSyncClear(c echo.Context) error {
	userID := c.Get("user_id").(string)

	if _, err := s.db.Exec(`DELETE FROM time_entries WHERE user_id = $1`, userID); err != nil {
		c.Logger().Error("db error:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if _, err := s.db.Exec(`DELETE FROM projects WHERE user_id = $1`, userID); err != nil {
		c.Logger().Error("db error:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	c.Logger().Infof("Cleared synced data for user %s", userID)

	return c.JSON(http.StatusOK, map[string]string{"message": "cleared"})
}
