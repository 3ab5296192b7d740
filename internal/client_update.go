package internal

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// async results delivered back into the bubbletea loop
type (
	connectedMsg     struct{}
	incomingMsg      []Event
	errorMsg         error
	connectFailedMsg struct{ err error }
	reconnectMsg     struct{}
	roomReadyMsg     struct {
		roomID  string
		isOwner bool
		err     error
	}
	roomClosedMsg struct{ err error }
	roomInfoMsg   struct {
		info *roomInfoResponse
		err  error
	}
	fileQueuedMsg struct {
		name string
		size int64
		err  error
	}
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		// Any mode should respect Ctrl+C so the user can bail out quickly.
		if typedMessage.Type == tea.KeyCtrlC {
			model.closeSocket("")
			return model, tea.Quit
		}
		switch model.mode {
		case modeMenu:
			switch typedMessage.String() {
			case "1", "j", "J":
				model.pendingAction = actionJoin
				return model, model.enterNamePrompt()
			case "2", "c", "C":
				model.pendingAction = actionCreate
				return model, model.enterNamePrompt()
			case "q", "Q", "3":
				// The menu screens all read the same keys, so "3" acts as an easy quit.
				return model, tea.Quit
			}
			return model, nil
		case modeNamePrompt:
			switch typedMessage.Type {
			case tea.KeyEnter:
				trimmed := strings.TrimSpace(model.textInput.Value())
				if trimmed == "" {
					model.addNotice("Display name cannot be empty.")
					return model, nil
				}
				model.username = trimmed
				model.textInput.SetValue("")
				nextAction := model.pendingAction
				model.pendingAction = actionNone
				switch nextAction {
				case actionJoin:
					model.mode = modeJoinPrompt
					model.textInput.Placeholder = "Enter room id…"
					model.textInput.Prompt = "room> "
					focusCmd := model.textInput.Focus()
					return model, focusCmd
				case actionCreate:
					model.loading = true
					return model, model.createRoomCmd()
				default:
					return model, model.backToMenu()
				}
			case tea.KeyEsc:
				model.pendingAction = actionNone
				return model, model.backToMenu()
			default:
				var cmd tea.Cmd
				model.textInput, cmd = model.textInput.Update(typedMessage)
				return model, cmd
			}
		case modeJoinPrompt:
			if typedMessage.Type == tea.KeyEsc {
				return model, model.backToMenu()
			}
			if typedMessage.Type == tea.KeyEnter {
				trimmed := strings.TrimSpace(model.textInput.Value())
				if trimmed == "" {
					return model, nil
				}
				model.loading = true
				// Register with the room over HTTP before dialing the websocket.
				return model, model.joinRoomCmd(trimmed)
			}
			var cmd tea.Cmd
			model.textInput, cmd = model.textInput.Update(typedMessage)
			return model, cmd
		case modeChat:
			switch typedMessage.Type {
			case tea.KeyEnter:
				trimmed := strings.TrimSpace(model.textInput.Value())

				if strings.HasPrefix(trimmed, "/") {
					return model.handleSlashCommand(trimmed)
				}
				if trimmed != "" && model.isConnected {
					return model, model.sendChatCmd(trimmed)
				}
			case tea.KeyEsc:
				model.closeSocket("")
				return model, tea.Quit
			}
			var command tea.Cmd
			model.textInput, command = model.textInput.Update(typedMessage)
			return model, command
		}

	case connectedMsg:
		model.isConnected = true
		model.connectionError = nil
		return model, model.readOnceCmd()

	case incomingMsg:
		for _, event := range typedMessage {
			if event.Type == eventClear {
				model.events = model.events[:0]
				continue
			}
			model.events = append(model.events, event)
		}
		return model, model.readOnceCmd()

	case errorMsg:
		model.connectionError = typedMessage
		return model, tea.Quit

	case connectFailedMsg:
		model.connectionError = typedMessage.err
		if model.mode == modeChat {
			return model, model.scheduleReconnect()
		}
		return model, nil

	case reconnectMsg:
		if model.mode == modeChat && !model.isConnected {
			return model, model.connectCmd()
		}
		return model, nil

	case roomReadyMsg:
		model.loading = false
		if typedMessage.err != nil {
			model.addNotice(fmt.Sprintf("Room error: %v", typedMessage.err))
			return model, nil
		}
		model.roomID = typedMessage.roomID
		model.isOwner = typedMessage.isOwner
		model.mode = modeChat
		model.notices = nil
		model.textInput.SetValue("")
		model.textInput.Placeholder = "Type a message…"
		model.textInput.Prompt = "> "
		model.textInput.Focus()
		if typedMessage.isOwner {
			model.events = append(model.events, systemEvent("Share room id "+typedMessage.roomID+" to invite listeners.", ""))
		}
		return model, model.connectCmd()

	case roomClosedMsg:
		if typedMessage.err != nil {
			model.events = append(model.events, systemEvent(fmt.Sprintf("Close failed: %v", typedMessage.err), ""))
			return model, nil
		}
		// the server tears the sockets down; the read loop ends the program
		return model, nil

	case roomInfoMsg:
		if typedMessage.err != nil {
			model.events = append(model.events, systemEvent(fmt.Sprintf("Info failed: %v", typedMessage.err), ""))
			return model, nil
		}
		members := strings.Join(typedMessage.info.Clients, ", ")
		if members == "" {
			members = "(none)"
		}
		model.events = append(model.events, systemEvent(fmt.Sprintf("Members: %s. Owner: %s", members, typedMessage.info.Owner), ""))
		return model, nil

	case fileQueuedMsg:
		if typedMessage.err != nil {
			model.events = append(model.events, systemEvent(fmt.Sprintf("Send failed: %v", typedMessage.err), ""))
			return model, nil
		}
		model.events = append(model.events, systemEvent(fmt.Sprintf("Sent %s (%s)", typedMessage.name, formatFileSize(typedMessage.size)), ""))
		return model, nil
	}
	return model, nil
}

func (model *TUIModel) handleSlashCommand(raw string) (tea.Model, tea.Cmd) {
	command, argument, _ := strings.Cut(raw, " ")
	switch strings.ToLower(command) {
	case "/quit", "/exit":
		model.closeSocket("client quit")
		return model, tea.Quit
	case "/close":
		if !model.isOwner {
			model.events = append(model.events, systemEvent("Only the room owner can close it.", ""))
			model.textInput.SetValue("")
			return model, nil
		}
		model.textInput.SetValue("")
		return model, model.closeRoomCmd()
	case "/who":
		model.textInput.SetValue("")
		return model, model.roomInfoCmd()
	case "/send":
		path := strings.TrimSpace(argument)
		if path == "" {
			model.events = append(model.events, systemEvent("Usage: /send <path>", ""))
			model.textInput.SetValue("")
			return model, nil
		}
		model.textInput.SetValue("")
		return model, model.sendFileCmd(path)
	}
	model.textInput.SetValue("")
	return model, nil
}

func (model *TUIModel) enterNamePrompt() tea.Cmd {
	model.mode = modeNamePrompt
	model.textInput.SetValue(model.username)
	model.textInput.Placeholder = "Enter display name…"
	model.textInput.Prompt = "name> "
	return model.textInput.Focus()
}

func (model *TUIModel) backToMenu() tea.Cmd {
	model.mode = modeMenu
	model.loading = false
	model.textInput.SetValue("")
	model.textInput.Blur()
	model.textInput.Placeholder = ""
	model.textInput.Prompt = ""
	return nil
}

func (model *TUIModel) closeSocket(reason string) {
	if model.websocketConn == nil {
		return
	}
	model.writeMutex.Lock()
	_ = model.websocketConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	model.writeMutex.Unlock()
	_ = model.websocketConn.Close()
}
