// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/redisbackup/internal/backup"
)

// Restore runs a restore synchronously and returns the finished restore
// record. The restore is detached from the request context: a client that
// disconnects must not abort a restore halfway through overwriting data.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	if h.backups.IsRunning() {
		respondDomainError(w, r, backup.NewError(backup.KindAlreadyRunning, "restore",
			"a backup or restore is in progress"), nil)
		return
	}
	if !h.backups.BackupExists(req.BackupFile) {
		respondDomainError(w, r, backup.NewError(backup.KindNotFound, "restore",
			fmt.Sprintf("backup file not found: %s", req.BackupFile)), nil)
		return
	}

	taskID := h.newID()
	rec, err := h.backups.ExecuteRestore(context.WithoutCancel(r.Context()), taskID, req.BackupFile, req.options())
	if err != nil {
		details := map[string]interface{}{"task_id": taskID}
		if rec.ID() != "" {
			details["restore"] = rec
		}
		respondDomainError(w, r, err, details)
		return
	}
	respondSuccess(w, r, http.StatusOK, RestoreResponse{TaskID: taskID, Restore: rec})
}

// RestoreStatus reports the restore registered under {task_id}.
func (h *Handler) RestoreStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	rec, err := h.backups.RestoreStatus(taskID)
	if err != nil {
		respondDomainError(w, r, err, map[string]interface{}{"task_id": taskID})
		return
	}
	respondSuccess(w, r, http.StatusOK, RestoreResponse{TaskID: taskID, Restore: rec})
}
