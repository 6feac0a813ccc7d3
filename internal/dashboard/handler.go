package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/teamboard/teamboard/internal/board"
	boardsync "github.com/teamboard/teamboard/internal/sync"
)

// Counter reports how many boards the local cache holds.
// *sync.Engine implements it.
type Counter interface {
	CachedCount(ctx context.Context) (int, error)
}

// Handler turns sync results and board edits into dashboard messages.
// It implements daemon.Observer and session.Notifier.
type Handler struct {
	server  *Server
	counter Counter
	logger  *log.Logger
}

// NewHandler creates a new event handler connected to a dashboard server.
// counter may be nil, in which case no stats are broadcast.
func NewHandler(server *Server, counter Counter, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}
	return &Handler{
		server:  server,
		counter: counter,
		logger:  logger,
	}
}

// SyncCompleted broadcasts a finished sync pass followed by fresh stats.
func (h *Handler) SyncCompleted(r boardsync.Result) {
	data := SyncCompleteData{
		Succeeded: r.Succeeded(),
		Message:   r.Message,
		Boards:    r.Boards,
	}
	if !r.Succeeded() {
		data.Message = r.FallbackMessage
		if r.Err != nil {
			data.Error = r.Err.Error()
		}
	}
	h.logger.Printf("Sync complete: succeeded=%v boards=%d", data.Succeeded, data.Boards)

	h.send(MessageTypeSyncComplete, data)
	h.BroadcastStats(context.Background())
}

// BoardChanged broadcasts a board edit.
func (h *Handler) BoardChanged(b *board.Board, action string) {
	if b == nil {
		return
	}
	h.send(MessageTypeBoardUpdate, BoardUpdateData{
		DocumentID: b.DocumentID,
		Name:       b.Name,
		Action:     action,
		Columns:    b.ColumnCount(),
		Cards:      b.CardCount(),
	})
}

// BroadcastStats sends the current cache statistics to all clients.
func (h *Handler) BroadcastStats(ctx context.Context) {
	if h.counter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := h.counter.CachedCount(ctx)
	if err != nil {
		h.logger.Printf("Failed to count cached boards: %v", err)
		return
	}
	h.send(MessageTypeStats, StatsData{CachedBoards: count})
}

func (h *Handler) send(typ MessageType, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
