package models

import "time"

// Message описывает неизменяемое сообщение между участником и тренером.
// Seq задаёт порядок вставки и разрешает равенство временных меток.
type Message struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageView дополняет сообщение данными отправителя и получателя для ответа клиенту.
type MessageView struct {
	Message
	Sender   Participant `json:"sender"`
	Receiver Participant `json:"receiver"`
}

// ConversationSummary описывает переписку тренера с одним собеседником.
type ConversationSummary struct {
	CounterpartID string      `json:"counterpart_id"`
	Counterpart   Participant `json:"counterpart"`
	LastMessage   Message     `json:"last_message"`
	MessageCount  int         `json:"message_count"`
}

// Page задаёт окно выборки истории сообщений.
type Page struct {
	Limit  int
	Offset int
}

// PairKey возвращает ключ переписки, не зависящий от порядка участников.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}
