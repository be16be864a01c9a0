package reaction

import (
	"context"

	"surflog-cli/internal/model"

	"go.uber.org/zap"
)

// ReactorLister fetches the full reactor list of a session.
type ReactorLister interface {
	Reactors(ctx context.Context, sessionID int64) ([]model.UserRef, error)
}

// Detail is the reactor list shown when the viewer opens the shaka count.
type Detail struct {
	Open        bool
	Reactors    []model.UserRef
	FromPreview bool
}

// OpenDetail opens the reactor list. With no reactions it does nothing (no request,
// not open). Otherwise it fetches the full list and falls back to the server's
// best-effort preview when the fetch fails.
func OpenDetail(ctx context.Context, sessionID int64, st State, preview []model.UserRef, l ReactorLister, log *zap.Logger) Detail {
	if st.Count <= 0 {
		return Detail{}
	}
	users, err := l.Reactors(ctx, sessionID)
	if err != nil {
		if log != nil {
			log.Warn("reactor list fetch failed; showing preview",
				zap.Int64("session_id", sessionID),
				zap.Error(err))
		}
		return Detail{Open: true, Reactors: append([]model.UserRef(nil), preview...), FromPreview: true}
	}
	return Detail{Open: true, Reactors: users}
}
