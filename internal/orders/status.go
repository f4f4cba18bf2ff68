package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusDiproses   Status = "diproses"
	StatusDikirim    Status = "dikirim"
	StatusSelesai    Status = "selesai"
	StatusDibatalkan Status = "dibatalkan"
)

var validStatus = map[Status]bool{
	StatusPending:    true,
	StatusDiproses:   true,
	StatusDikirim:    true,
	StatusSelesai:    true,
	StatusDibatalkan: true,
}

// ValidStatus reports whether s is one of the five order states. Transitions
// between states are deliberately unconstrained; admins may move an order to
// any state at any time.
func ValidStatus(s Status) bool { return validStatus[s] }
