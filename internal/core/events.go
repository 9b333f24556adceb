package core

// Outbound event names. The coordinator decides; the transport only carries.
const (
	EventConnected          = "connected"
	EventError              = "error"
	EventSearching          = "searching"
	EventMatchingStats      = "matching_stats"
	EventMatchFound         = "match_found"
	EventMatchingCancelled  = "matching_cancelled"
	EventReceiveMessage     = "receive_message"
	EventMessageSent        = "message_sent"
	EventPartnerTypingStart = "partner_typing_start"
	EventPartnerTypingStop  = "partner_typing_stop"
	EventFriendRequest      = "friend_request_received"
	EventPartnerLeft        = "partner_left"
	EventChatEnded          = "chat_ended"
	EventYouWereSkipped     = "you_were_skipped"
	EventPartnerDisconnect  = "partner_disconnected"
	EventUserOnline         = "user_online"
	EventUserOffline        = "user_offline"
	EventOnlineUsers        = "online_users"
	EventRoomJoined         = "episode_room_joined"
	EventRoomLeft           = "episode_room_left"
	EventRoomUserJoined     = "episode_room_user_joined"
	EventRoomUserLeft       = "episode_room_user_left"
	EventRoomMessage        = "episode_room_message"
)

// Gamification event kinds recorded through the EventSink.
const (
	KindMatchStarted = "match_started"
	KindMessageSent  = "message_sent"
	KindRoomJoined   = "room_joined"
)
