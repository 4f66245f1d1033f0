package session

type NotificationType string

const (
	NotificationReminder24h         NotificationType = "reminder_24h"
	NotificationReminder2h          NotificationType = "reminder_2h"
	NotificationMeetLink            NotificationType = "meet_link"
	NotificationPaymentConfirmation NotificationType = "payment_confirmed"
)

const ChannelWhatsApp = "whatsapp"

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)
