package conversation

// History ограниченный список диалогов в порядке создания.
// При переполнении удаляется самый старый (FIFO). Ровно один диалог — текущий.
// Доступ не синхронизирован: историей владеет единственный писатель (контроллер).
type History struct {
	cap           int
	conversations []*Conversation
	currentID     string
}

// NewHistory создаёт пустую историю с заданной ёмкостью.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 20
	}
	return &History{cap: capacity, conversations: make([]*Conversation, 0, capacity)}
}

// Restore восстанавливает историю из сохранённого списка диалогов.
// Лишние диалоги сверх ёмкости отбрасываются с начала; если currentID
// не найден, текущим становится последний диалог.
func Restore(capacity int, conversations []*Conversation, currentID string) *History {
	h := NewHistory(capacity)
	for _, c := range conversations {
		if c == nil || len(c.Messages) == 0 {
			continue
		}
		h.add(c)
	}
	if h.Len() == 0 {
		return h
	}
	if h.Get(currentID) != nil {
		h.currentID = currentID
	} else {
		h.currentID = h.conversations[len(h.conversations)-1].ID
	}
	return h
}

func (h *History) add(c *Conversation) {
	if len(h.conversations) == h.cap {
		// вытеснить самый старый
		copy(h.conversations, h.conversations[1:])
		h.conversations = h.conversations[:h.cap-1]
	}
	h.conversations = append(h.conversations, c)
}

// StartNew создаёт новый диалог с приветственным сообщением и делает его текущим.
// При isInitial история предварительно очищается (холодный старт).
func (h *History) StartNew(welcomeText string, isInitial bool) *Conversation {
	if isInitial {
		h.conversations = h.conversations[:0]
	}
	c := New(welcomeText)
	h.add(c)
	h.currentID = c.ID
	return c
}

// Current возвращает текущий диалог, nil если история пуста.
func (h *History) Current() *Conversation {
	return h.Get(h.currentID)
}

// CurrentID возвращает идентификатор текущего диалога.
func (h *History) CurrentID() string { return h.currentID }

// Get ищет диалог по идентификатору.
func (h *History) Get(id string) *Conversation {
	if id == "" {
		return nil
	}
	for _, c := range h.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Select делает диалог текущим. Возвращает false, если такого диалога нет.
func (h *History) Select(id string) bool {
	if h.Get(id) == nil {
		return false
	}
	h.currentID = id
	return true
}

// All возвращает диалоги в порядке создания.
func (h *History) All() []*Conversation { return h.conversations }

func (h *History) Len() int { return len(h.conversations) }
