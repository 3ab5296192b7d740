package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

func (model *TUIModel) scheduleReconnect() tea.Cmd {
	const retryDelay = 2 * time.Second
	// we schedule a future poke that nudges Update to try the connection again.
	return tea.Tick(retryDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

// createRoomCmd asks the server for a fresh room owned by the current user.
func (model *TUIModel) createRoomCmd() tea.Cmd {
	return func() tea.Msg {
		base, err := httpBase(model.serverURL)
		if err != nil {
			return roomReadyMsg{err: err}
		}
		created, err := apiCreateRoom(base, model.username)
		if err != nil {
			return roomReadyMsg{err: err}
		}
		return roomReadyMsg{roomID: created.RoomID, isOwner: true}
	}
}

func (model *TUIModel) joinRoomCmd(roomID string) tea.Cmd {
	return func() tea.Msg {
		base, err := httpBase(model.serverURL)
		if err != nil {
			return roomReadyMsg{err: err}
		}
		joined, err := apiJoinRoom(base, roomID, model.username)
		if err != nil {
			return roomReadyMsg{err: err}
		}
		return roomReadyMsg{roomID: roomID, isOwner: joined.IsOwner}
	}
}

func (model *TUIModel) closeRoomCmd() tea.Cmd {
	return func() tea.Msg {
		base, err := httpBase(model.serverURL)
		if err != nil {
			return roomClosedMsg{err: err}
		}
		return roomClosedMsg{err: apiCloseRoom(base, model.roomID, model.username)}
	}
}

func (model *TUIModel) roomInfoCmd() tea.Cmd {
	return func() tea.Msg {
		base, err := httpBase(model.serverURL)
		if err != nil {
			return roomInfoMsg{err: err}
		}
		info, err := apiRoomInfo(base, model.roomID)
		return roomInfoMsg{info: info, err: err}
	}
}

// websocket dial
func (model *TUIModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		socketURL, err := buildSocketURL(model.serverURL, model.roomID, model.username)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		conn, _, err := websocket.DefaultDialer.Dial(socketURL, http.Header{})
		if err != nil {
			return connectFailedMsg{err: err}
		}
		model.websocketConn = conn
		return connectedMsg{}
	}
}

// readOnceCmd pulls one websocket frame and converts it into bubbletea
// messages; history envelopes expand into their retained events.
func (model *TUIModel) readOnceCmd() tea.Cmd {
	return func() tea.Msg {
		if model.websocketConn == nil {
			return errorMsg(fmt.Errorf("websocket not connected"))
		}
		messageType, payload, err := model.websocketConn.ReadMessage()
		if err != nil {
			return errorMsg(err)
		}
		if messageType == websocket.BinaryMessage {
			notice := systemEvent(fmt.Sprintf("Received file payload (%s)", formatFileSize(int64(len(payload)))), "")
			return incomingMsg{notice}
		}
		if messageType != websocket.TextMessage {
			return incomingMsg(nil)
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return incomingMsg{systemEvent(string(payload), "")}
		}
		if event.Type == eventHistory {
			var envelope historyEnvelope
			if err := json.Unmarshal(payload, &envelope); err != nil {
				return incomingMsg(nil)
			}
			return incomingMsg(envelope.Items)
		}
		return incomingMsg{event}
	}
}

func (model *TUIModel) sendChatCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := model.writeJSON(inboundEvent{Type: eventChat, Text: text}); err != nil {
			return errorMsg(err)
		}
		model.textInput.SetValue("")
		return nil
	}
}

// sendFileCmd relays a local file: a JSON header announcing the name followed
// by one raw binary frame with the bytes.
func (model *TUIModel) sendFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		name, data, err := readLocalFile(path)
		if err != nil {
			return fileQueuedMsg{name: path, err: err}
		}
		if err := model.writeJSON(inboundEvent{Type: eventFile, Filename: name}); err != nil {
			return errorMsg(err)
		}
		model.writeMutex.Lock()
		err = model.websocketConn.WriteMessage(websocket.BinaryMessage, data)
		model.writeMutex.Unlock()
		if err != nil {
			return errorMsg(err)
		}
		return fileQueuedMsg{name: name, size: int64(len(data))}
	}
}

func (model *TUIModel) writeJSON(frame inboundEvent) error {
	if model.websocketConn == nil {
		return fmt.Errorf("websocket not connected")
	}
	encoded, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	model.writeMutex.Lock()
	defer model.writeMutex.Unlock()
	return model.websocketConn.WriteMessage(websocket.TextMessage, encoded)
}

// entry for bubbletea
func RunClient(serverURL, roomID, username string) error {
	program := tea.NewProgram(NewTUIModel(serverURL, roomID, username))
	_, err := program.Run()
	return err
}

// buildSocketURL turns the configured base URL into the websocket endpoint
// for a room, e.g. ws://localhost:8080/ws/comuni/ROOM?user=NAME.
func buildSocketURL(base, roomID, username string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	parsed.Path = "/ws/comuni/" + roomID
	query := url.Values{}
	query.Set("user", username)
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""
	return parsed.String(), nil
}
