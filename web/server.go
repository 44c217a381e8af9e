// Package web serves the spreadsheet over HTTP: static assets plus a
// /ws websocket endpoint speaking a small JSON protocol. The engine is
// single-threaded by contract, so every sheet access is serialized
// behind the server mutex.
package web

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"

	"tally/cellref"
	"tally/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, no cross-origin story
	},
}

// UpdateRequest is a client message: an assignment or a snapshot ask.
type UpdateRequest struct {
	Type string `json:"type"` // "update_cell" or "snapshot"
	ID   string `json:"id,omitempty"`
	Expr string `json:"expr,omitempty"`
}

// CellUpdate is a server message describing one cell's display state.
// Status is set only on the cell the client assigned.
type CellUpdate struct {
	Type    string `json:"type"` // "cell_updated"
	ID      string `json:"id"`
	Display string `json:"display"`
	Status  string `json:"status,omitempty"`
}

// Server owns one sheet and fans cell updates out to every connected
// client.
type Server struct {
	mu      sync.Mutex
	sheet   *engine.Sheet
	clients map[*websocket.Conn]bool
}

// NewServer wraps a sheet for serving.
func NewServer(sheet *engine.Sheet) *Server {
	return &Server{
		sheet:   sheet,
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleWebSocket upgrades the connection, replays the sheet's
// non-empty cells and then processes client requests until the peer
// goes away.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade error:", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	s.sendSnapshot(conn)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var req UpdateRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			log.Println("bad request:", err)
			continue
		}
		switch req.Type {
		case "update_cell":
			s.handleUpdate(req)
		case "snapshot":
			s.sendSnapshot(conn)
		}
	}
}

// handleUpdate runs one assignment and broadcasts every cell the
// engine recomputed, plus the assigned cell itself.
func (s *Server) handleUpdate(req UpdateRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := cellref.Parse(req.ID)
	if err != nil {
		s.broadcastLocked(CellUpdate{
			Type:   "cell_updated",
			ID:     req.ID,
			Status: engine.StatusInvalidCell.String(),
		})
		return
	}

	status, fx := s.sheet.SetCellRef(ref, req.Expr)
	updates := make([]CellUpdate, 0, len(fx.Recomputed)+1)
	assigned := CellUpdate{
		Type:   "cell_updated",
		ID:     ref.String(),
		Status: status.String(),
	}
	if !status.Rejected() {
		assigned.Display = s.sheet.Display(ref.Row, ref.Col)
	}
	updates = append(updates, assigned)
	for _, key := range fx.Recomputed {
		kr := cellref.Ref{Row: int(key) / s.sheet.Cols(), Col: int(key) % s.sheet.Cols()}
		updates = append(updates, CellUpdate{
			Type:    "cell_updated",
			ID:      kr.String(),
			Display: s.sheet.Display(kr.Row, kr.Col),
		})
	}
	for _, u := range updates {
		s.broadcastLocked(u)
	}
}

func (s *Server) broadcastLocked(update CellUpdate) {
	for client := range s.clients {
		if err := client.WriteJSON(update); err != nil {
			log.Printf("broadcast write failed: %v", err)
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}

// sendSnapshot replays every cell that is errored or holds a non-zero
// value to a single client. A formula cell whose value is 0 is not
// sent.
func (s *Server) sendSnapshot(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, cols := s.sheet.Rows(), s.sheet.Cols()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			value, errored, _ := s.sheet.Get(row, col)
			if value == 0 && !errored {
				continue
			}
			u := CellUpdate{
				Type:    "cell_updated",
				ID:      cellref.Ref{Row: row, Col: col}.String(),
				Display: s.sheet.Display(row, col),
			}
			if err := conn.WriteJSON(u); err != nil {
				log.Printf("snapshot write failed: %v", err)
				return
			}
		}
	}
}

// Start serves static assets and the websocket endpoint on addr.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	dir := "assets/sheet"
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Printf("static directory %s not found; only /ws will be served", dir)
	}
	mux.Handle("/", http.FileServer(http.Dir(dir)))
	mux.HandleFunc("/ws", s.HandleWebSocket)

	log.Printf("spreadsheet server listening at http://%s", addr)
	return http.ListenAndServe(addr, mux)
}
