package events

// Kind is the closed set of socket event names. Inbound events are
// dispatched through a table keyed by Kind; unknown names are answered with
// a messageError event instead of being silently dropped.
type Kind string

// Inbound (client -> server)
const (
	KindJoin        Kind = "join"
	KindSendMessage Kind = "sendMessage"
	KindTyping      Kind = "typing"
	KindStopTyping  Kind = "stopTyping"
	KindUserOnline  Kind = "userOnline"
	KindUserOffline Kind = "userOffline"
	KindMessageRead Kind = "messageRead"
	KindCallUser    Kind = "callUser"
	KindAnswerCall  Kind = "answerCall"
	KindEndCall     Kind = "endCall"
)

// Outbound (server -> client)
const (
	KindNewMessage             Kind = "newMessage"
	KindMessageError           Kind = "messageError"
	KindUserTyping             Kind = "userTyping"
	KindUserEndTyping          Kind = "userStopTyping"
	KindUserStatusUpdate       Kind = "userStatusUpdate"
	KindMessageReadUpdate      Kind = "messageReadUpdate"
	KindReactionUpdate         Kind = "reactionUpdate"
	KindMessageDeleted         Kind = "messageDeleted"
	KindFriendRequest          Kind = "friendRequest"
	KindFriendRequestResponded Kind = "friendRequestResponded"
	KindIncomingCall           Kind = "incomingCall"
	KindCallAnswered           Kind = "callAnswered"
	KindCallEnded              Kind = "callEnded"
)
