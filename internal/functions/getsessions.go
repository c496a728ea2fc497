package functions

import (
	"context"
	"encoding/json"
	"fmt"

	"ani-canvas-backend/internal/models"
)

// GetSessionsName is the logical name of the active-session query function.
const GetSessionsName = "shareSessionGetSessions"

// RegisterGetSessions wires the versioned handlers of the active-session
// query into the dispatcher.
func RegisterGetSessions(d *Dispatcher, kv kvStore, sharePath string) {
	d.Register(GetSessionsName, "v1", getSessionsV1(kv, sharePath))
}

// getSessionsV1 lists every realtime session row and filters to those whose
// target gallery ref equals the caller-supplied value, returning the filtered
// set alongside the caller's auth context.
func getSessionsV1(kv kvStore, sharePath string) Handler {
	return func(ctx context.Context, req models.FunctionRequest, auth *models.AuthContext) (*models.FunctionResponse, error) {
		currentDatabaseRef, _ := req.Params["currentDatabaseRef"].(string)

		rows, err := kv.ListPrefix(sharePath + "/sessions")
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}

		sessions := make(map[string]models.Session)
		for sessionID, encoded := range rows {
			var session models.Session
			if err := json.Unmarshal(encoded, &session); err != nil {
				return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
			}
			if session.CurrentDatabaseRef == currentDatabaseRef {
				sessions[sessionID] = session
			}
		}

		return &models.FunctionResponse{
			Data: map[string]interface{}{"sessions": sessions},
			Auth: auth,
		}, nil
	}
}
