// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/logging"
)

// TriggerBackup starts a manual backup and returns 202 with its task ID.
func (h *Handler) TriggerBackup(w http.ResponseWriter, r *http.Request) {
	var req TriggerBackupRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	taskID, err := h.backups.StartBackup(r.Context(), req.Label, backup.TriggerManual)
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}

	logging.Ctx(r.Context()).Info().Str("task_id", taskID).Str("label", req.Label).Msg("Manual backup triggered")
	respondSuccess(w, r, http.StatusAccepted, TriggerBackupResponse{
		TaskID:  taskID,
		Message: "Backup task started",
		Status:  "STARTED",
	})
}

// BackupStatus reports the record registered under {task_id}.
func (h *Handler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	rec, err := h.backups.TaskStatus(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, r, err, map[string]interface{}{"task_id": taskID})
		return
	}
	respondSuccess(w, r, http.StatusOK, newBackupStatus(taskID, rec))
}

// ListBackups returns completed backups, newest first.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	records, err := h.backups.ListBackups(r.Context())
	if err != nil {
		respondDomainError(w, r, err, nil)
		return
	}

	items := make([]BackupListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, newBackupListItem(rec))
	}
	respondSuccess(w, r, http.StatusOK, BackupListResponse{Backups: items, Total: len(items)})
}

// MarkImportant exempts backup {id} from retention cleanup.
func (h *Handler) MarkImportant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.backups.MarkImportant(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err, map[string]interface{}{"id": id})
		return
	}
	respondSuccess(w, r, http.StatusOK, newBackupListItem(rec))
}
