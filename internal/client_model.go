package internal

import (
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// tui model struct for all the components and modes
type TUIModel struct {
	textInput       textinput.Model
	events          []Event
	notices         []string
	serverURL       string
	roomID          string
	username        string
	isOwner         bool
	websocketConn   *websocket.Conn
	writeMutex      sync.Mutex
	isConnected     bool
	connectionError error
	mode            appMode
	pendingAction   actionType
	loading         bool
}

type appMode int

const (
	modeMenu appMode = iota
	modeNamePrompt
	modeJoinPrompt
	modeChat
)

type actionType int

const (
	actionNone actionType = iota
	actionJoin
	actionCreate
)

func NewTUIModel(serverURL, roomID, username string) *TUIModel {
	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.CharLimit = 0
	input.Focus()
	input.Prompt = "> "

	if username == "" {
		username = defaultUsername()
	}

	model := &TUIModel{
		textInput: input,
		events:    make([]Event, 0, 64),
		serverURL: serverURL,
		roomID:    roomID,
		username:  username,
	}
	if roomID == "" {
		model.mode = modeMenu
		model.textInput.Blur()
		model.textInput.Prompt = ""
		model.textInput.Placeholder = ""
	} else {
		model.mode = modeChat
	}
	return model
}

// init user
func defaultUsername() string {
	if user := os.Getenv("MEURS_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}

func (model *TUIModel) Init() tea.Cmd {
	if model.mode == modeChat {
		// a room id was passed on the command line, join it before dialing
		return model.joinRoomCmd(model.roomID)
	}
	return nil
}

func (model *TUIModel) addNotice(text string) {
	model.notices = append(model.notices, text)
}
