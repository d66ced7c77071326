package server

import (
	"bytes"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/logging"
)

// handleWebsocket answers one exchange record per text message until the
// client closes the connection. A malformed record closes the connection
// with StatusInvalidFramePayloadData.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), s.logger)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(s.maxBody)

	sessionID := r.Header.Get(SessionHeader)
	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, ctx.Err()) {
				logger.Debug("websocket read", "error", err)
			}
			return
		}

		x, err := core.DecodeExchange(bytes.NewReader(data))
		if err != nil {
			_ = conn.Close(websocket.StatusInvalidFramePayloadData, truncateReason(err.Error()))
			return
		}

		cont := s.Reply(ctx, x, sessionID)
		if err := wsjson.Write(ctx, conn, core.Exchange{ChatHistory: cont}); err != nil {
			logger.Warn("websocket write", "error", err)
			return
		}
	}
}

// Close reasons must fit a control frame.
// truncateReason shortens s to fit a close frame without splitting a rune.
func truncateReason(s string) string {
	const maxReason = 120
	if len(s) <= maxReason {
		return s
	}
	cut := maxReason
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
