// Package kernel exposes a sheet over ZeroMQ so external tooling can
// drive it: a REP heartbeat socket, a ROUTER shell socket answering
// signed JSON requests, and a PUB socket broadcasting cell updates.
// Frames carry an HMAC-SHA256 signature over the JSON segments,
// delimited by <IDS|MSG>.
package kernel

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"

	"tally/cellref"
	"tally/engine"
)

const protocolVersion = "1.0"

// ConnectionInfo holds the connection-file configuration.
type ConnectionInfo struct {
	SignatureScheme string `json:"signature_scheme"`
	Transport       string `json:"transport"`
	IP              string `json:"ip"`
	Key             string `json:"key"`
	ShellPort       int    `json:"shell_port"`
	PubPort         int    `json:"pub_port"`
	HBPort          int    `json:"hb_port"`
}

// Header identifies a protocol message.
type Header struct {
	MsgID   string `json:"msg_id"`
	Session string `json:"session"`
	Date    string `json:"date"`
	MsgType string `json:"msg_type"`
	Version string `json:"version"`
}

// Message is one signed protocol message.
type Message struct {
	Header       Header                 `json:"header"`
	ParentHeader Header                 `json:"parent_header"`
	Metadata     map[string]interface{} `json:"metadata"`
	Content      map[string]interface{} `json:"content"`
}

// Kernel serves one sheet over the three sockets.
type Kernel struct {
	config   ConnectionInfo
	hb       zmq4.Socket
	shell    zmq4.Socket
	pub      zmq4.Socket
	sockets  []zmq4.Socket
	shutdown chan struct{}

	mu    sync.Mutex
	sheet *engine.Sheet
}

// New reads a connection file and wraps the sheet for serving.
func New(configPath string, sheet *engine.Sheet) (*Kernel, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read connection file: %w", err)
	}
	var config ConnectionInfo
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse connection file: %w", err)
	}
	return &Kernel{
		config:   config,
		shutdown: make(chan struct{}),
		sheet:    sheet,
	}, nil
}

// Start binds the sockets and serves until a shutdown request.
func (k *Kernel) Start() error {
	ctx := context.Background()

	createSocket := func(sockType zmq4.SocketType, port int) (zmq4.Socket, error) {
		var sock zmq4.Socket
		switch sockType {
		case zmq4.Rep:
			sock = zmq4.NewRep(ctx)
		case zmq4.Router:
			sock = zmq4.NewRouter(ctx)
		case zmq4.Pub:
			sock = zmq4.NewPub(ctx)
		default:
			return nil, fmt.Errorf("unsupported socket type: %v", sockType)
		}
		addr := fmt.Sprintf("%s://%s:%d", k.config.Transport, k.config.IP, port)
		if err := sock.Listen(addr); err != nil {
			return nil, fmt.Errorf("bind %s: %w", addr, err)
		}
		return sock, nil
	}

	var err error
	if k.hb, err = createSocket(zmq4.Rep, k.config.HBPort); err != nil {
		return err
	}
	go k.handleHeartbeat()

	if k.shell, err = createSocket(zmq4.Router, k.config.ShellPort); err != nil {
		return err
	}
	if k.pub, err = createSocket(zmq4.Pub, k.config.PubPort); err != nil {
		return err
	}
	k.sockets = []zmq4.Socket{k.hb, k.shell, k.pub}

	log.Printf("kernel listening: hb=%d shell=%d pub=%d",
		k.config.HBPort, k.config.ShellPort, k.config.PubPort)

	go k.handleShell()

	<-k.shutdown
	return nil
}

// Stop closes every socket and releases Start.
func (k *Kernel) Stop() {
	close(k.shutdown)
	for _, sock := range k.sockets {
		sock.Close()
	}
}

func (k *Kernel) handleHeartbeat() {
	for {
		msg, err := k.hb.Recv()
		if err != nil {
			return
		}
		if err := k.hb.Send(msg); err != nil {
			log.Printf("heartbeat send: %v", err)
		}
	}
}

func (k *Kernel) handleShell() {
	for {
		identities, msg, err := k.receiveMessage(k.shell)
		if err != nil {
			select {
			case <-k.shutdown:
				return
			default:
			}
			log.Printf("shell receive: %v", err)
			continue
		}

		switch msg.Header.MsgType {
		case "sheet_info_request":
			k.handleSheetInfo(msg, identities)
		case "set_cell_request":
			k.handleSetCell(msg, identities)
		case "get_cell_request":
			k.handleGetCell(msg, identities)
		case "shutdown_request":
			k.handleShutdown(msg, identities)
		default:
			log.Printf("unknown shell message type: %s", msg.Header.MsgType)
		}
	}
}

// receiveMessage reads one framed request:
// [identities...] <IDS|MSG> <hmac> <header> <parent> <metadata> <content>
func (k *Kernel) receiveMessage(sock zmq4.Socket) ([][]byte, *Message, error) {
	msg, err := sock.Recv()
	if err != nil {
		return nil, nil, err
	}
	return decodeFrames(msg.Frames, k.config.Key)
}

func decodeFrames(frames [][]byte, key string) ([][]byte, *Message, error) {
	delim := -1
	for i, frame := range frames {
		if string(frame) == "<IDS|MSG>" {
			delim = i
			break
		}
	}
	if delim == -1 || len(frames) < delim+6 {
		return nil, nil, fmt.Errorf("message delimiter not found")
	}

	identities := frames[:delim]
	signature := string(frames[delim+1])
	segments := frames[delim+2 : delim+6]

	if expected := sign(segments, key); !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, nil, fmt.Errorf("signature mismatch")
	}

	var m Message
	if err := json.Unmarshal(segments[0], &m.Header); err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(segments[1], &m.ParentHeader); err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(segments[2], &m.Metadata); err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(segments[3], &m.Content); err != nil {
		return nil, nil, err
	}
	return identities, &m, nil
}

func (k *Kernel) sendMessage(sock zmq4.Socket, msg *Message, identities ...[]byte) error {
	return sock.Send(zmq4.NewMsgFrom(encodeFrames(msg, k.config.Key, identities)...))
}

func encodeFrames(msg *Message, key string, identities [][]byte) [][]byte {
	header, _ := json.Marshal(msg.Header)
	parentHeader, _ := json.Marshal(msg.ParentHeader)
	metadata := msg.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataBytes, _ := json.Marshal(metadata)
	content, _ := json.Marshal(msg.Content)

	segments := [][]byte{header, parentHeader, metadataBytes, content}
	frames := make([][]byte, 0, len(identities)+6)
	frames = append(frames, identities...)
	frames = append(frames, []byte("<IDS|MSG>"), []byte(sign(segments, key)))
	frames = append(frames, segments...)
	return frames
}

// sign computes the hex HMAC-SHA256 of the JSON segments.
func sign(segments [][]byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	for _, seg := range segments {
		mac.Write(seg)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

func (k *Kernel) reply(msgType string, parent *Message, content map[string]interface{}, identities [][]byte) {
	msg := &Message{
		Header: Header{
			MsgID:   newMsgID(),
			Session: parent.Header.Session,
			Date:    time.Now().Format(time.RFC3339),
			MsgType: msgType,
			Version: protocolVersion,
		},
		ParentHeader: parent.Header,
		Content:      content,
	}
	if err := k.sendMessage(k.shell, msg, identities...); err != nil {
		log.Printf("send %s: %v", msgType, err)
	}
}

func (k *Kernel) publish(msgType string, parent Header, content map[string]interface{}) {
	msg := &Message{
		Header: Header{
			MsgID:   newMsgID(),
			Session: parent.Session,
			Date:    time.Now().Format(time.RFC3339),
			MsgType: msgType,
			Version: protocolVersion,
		},
		ParentHeader: parent,
		Content:      content,
	}
	if err := k.sendMessage(k.pub, msg); err != nil {
		log.Printf("publish %s: %v", msgType, err)
	}
}

func (k *Kernel) handleSheetInfo(msg *Message, identities [][]byte) {
	k.mu.Lock()
	rows, cols := k.sheet.Rows(), k.sheet.Cols()
	k.mu.Unlock()

	k.reply("sheet_info_reply", msg, map[string]interface{}{
		"implementation": "tally",
		"version":        protocolVersion,
		"rows":           rows,
		"cols":           cols,
	}, identities)
}

func (k *Kernel) handleSetCell(msg *Message, identities [][]byte) {
	id, _ := msg.Content["cell"].(string)
	expr, _ := msg.Content["expr"].(string)

	ref, err := cellref.Parse(id)
	if err != nil {
		k.reply("set_cell_reply", msg, map[string]interface{}{
			"status": engine.StatusInvalidCell.String(),
			"cell":   id,
		}, identities)
		return
	}

	type update struct{ id, display string }
	k.mu.Lock()
	status, fx := k.sheet.SetCellRef(ref, expr)
	updates := make([]update, 0, len(fx.Recomputed)+1)
	display := ""
	if !status.Rejected() {
		display = k.sheet.Display(ref.Row, ref.Col)
		updates = append(updates, update{ref.String(), display})
	}
	cols := k.sheet.Cols()
	for _, key := range fx.Recomputed {
		kr := cellref.Ref{Row: int(key) / cols, Col: int(key) % cols}
		updates = append(updates, update{kr.String(), k.sheet.Display(kr.Row, kr.Col)})
	}
	k.mu.Unlock()

	k.reply("set_cell_reply", msg, map[string]interface{}{
		"status":  status.String(),
		"cell":    ref.String(),
		"display": display,
	}, identities)
	for _, u := range updates {
		k.publish("cell_updated", msg.Header, map[string]interface{}{
			"cell":    u.id,
			"display": u.display,
		})
	}
}

func (k *Kernel) handleGetCell(msg *Message, identities [][]byte) {
	id, _ := msg.Content["cell"].(string)

	ref, err := cellref.Parse(id)
	if err != nil {
		k.reply("get_cell_reply", msg, map[string]interface{}{
			"status": engine.StatusInvalidCell.String(),
			"cell":   id,
		}, identities)
		return
	}

	k.mu.Lock()
	value, errored, getErr := k.sheet.Get(ref.Row, ref.Col)
	display := ""
	if getErr == nil {
		display = k.sheet.Display(ref.Row, ref.Col)
	}
	k.mu.Unlock()

	if getErr != nil {
		k.reply("get_cell_reply", msg, map[string]interface{}{
			"status": engine.StatusInvalidCell.String(),
			"cell":   id,
		}, identities)
		return
	}
	k.reply("get_cell_reply", msg, map[string]interface{}{
		"status":  engine.StatusOK.String(),
		"cell":    ref.String(),
		"value":   value,
		"error":   errored,
		"display": display,
	}, identities)
}

func (k *Kernel) handleShutdown(msg *Message, identities [][]byte) {
	k.reply("shutdown_reply", msg, map[string]interface{}{}, identities)
	k.Stop()
}

func newMsgID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
