package model

import "time"

// 画面のモード。同時に開けるモーダルは1つだけ。
type Mode string

const (
	ModeIdle       Mode = "IDLE"
	ModeAddOpen    Mode = "ADD_MODAL_OPEN"
	ModeSearchOpen Mode = "SEARCH_MODAL_OPEN"
)

// 画面の操作
type PageEvent string

const (
	EventOpenAdd      PageEvent = "OPEN_ADD"
	EventOpenSearch   PageEvent = "OPEN_SEARCH"
	EventSubmitAdd    PageEvent = "SUBMIT_ADD"
	EventCancelAdd    PageEvent = "CANCEL_ADD"
	EventSubmitSearch PageEvent = "SUBMIT_SEARCH"
	EventCancelSearch PageEvent = "CANCEL_SEARCH"
)

// 許可される遷移
var transitions = map[Mode]map[PageEvent]Mode{
	ModeIdle: {
		EventOpenAdd:    ModeAddOpen,
		EventOpenSearch: ModeSearchOpen,
	},
	ModeAddOpen: {
		EventSubmitAdd: ModeIdle,
		EventCancelAdd: ModeIdle,
	},
	ModeSearchOpen: {
		EventSubmitSearch: ModeIdle,
		EventCancelSearch: ModeIdle,
	},
}

// 追加モーダルの入力中の値
type AddForm struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Image    string `json:"image"`
}

// セッションごとの画面状態。
// Items はストアから最後に取得した全件（表示用に名前を整形済み）。
type PageState struct {
	SessionID string       `json:"session_id"`
	Mode      Mode         `json:"mode"`
	Items     []PantryItem `json:"items"`
	Query     string       `json:"query"`
	Form      AddForm      `json:"form"`
	FetchedAt time.Time    `json:"fetched_at"`
}

func NewPageState(sessionID string) PageState {
	return PageState{
		SessionID: sessionID,
		Mode:      ModeIdle,
		Items:     []PantryItem{},
	}
}

// CanApply は今のモードでイベントが許可されているか。
func (s PageState) CanApply(ev PageEvent) bool {
	_, ok := transitions[s.currentMode()][ev]
	return ok
}

// Apply は遷移できればモードを変えて true を返す。
func (s *PageState) Apply(ev PageEvent) bool {
	next, ok := transitions[s.currentMode()][ev]
	if !ok {
		return false
	}
	s.Mode = next
	return true
}

func (s PageState) currentMode() Mode {
	if s.Mode == "" {
		return ModeIdle
	}
	return s.Mode
}

// VisibleItems は検索条件で絞り込んだ一覧。全件は Items に残す。
func (s PageState) VisibleItems() []PantryItem {
	if s.Query == "" {
		return s.Items
	}
	out := make([]PantryItem, 0, len(s.Items))
	for _, it := range s.Items {
		if it.MatchesQuery(s.Query) {
			out = append(out, it)
		}
	}
	return out
}

// Clone は Items を共有しないコピー。
func (s PageState) Clone() PageState {
	cp := s
	cp.Items = append([]PantryItem(nil), s.Items...)
	if cp.Items == nil {
		cp.Items = []PantryItem{}
	}
	return cp
}
