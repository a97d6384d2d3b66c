package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации, по которому она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Ключи маршрутизации событий.
const (
	RoutingMembershipUpgraded  = "membership.upgraded"
	RoutingMembershipCancelled = "membership.cancelled"
	RoutingMessageSent         = "message.sent"
)

// GetEventQueues возвращает очереди, которые читают сервисы уведомлений.
func GetEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.membership", RoutingKey: "membership.*"},
		{QueueName: "notification.messages", RoutingKey: RoutingMessageSent},
	}
}
