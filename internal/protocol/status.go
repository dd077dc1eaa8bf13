package protocol

// AuthCode is the stable status contract of AuthenticateResponse frames.
type AuthCode int32

const (
	AuthSuccess AuthCode = iota
	AuthTimeout
	AuthUnsupportedMessageType
	AuthNoPermission
	AuthExpireOrNotFound
	AuthOther
)

func (c AuthCode) Result() ResultMessage {
	switch c {
	case AuthSuccess:
		return ResultMessage{StatusCode: 0, Message: "Authenticated Successfully"}
	case AuthTimeout:
		return ResultMessage{StatusCode: 1, Message: "Authentication Timeout"}
	case AuthUnsupportedMessageType:
		return ResultMessage{StatusCode: 2, Message: "Only supports authenticated text message type"}
	case AuthNoPermission:
		return ResultMessage{StatusCode: 3, Message: "User does not have permission to access this group"}
	case AuthExpireOrNotFound:
		return ResultMessage{StatusCode: 4, Message: "User token is expired or not found"}
	default:
		return ResultMessage{StatusCode: 5, Message: "Failed to get user from user code"}
	}
}

// Outbound frame constructors. Each returns a frame with exactly one variant
// populated.

func AuthResponse(c AuthCode) *Frame {
	r := c.Result()
	return &Frame{AuthenticateResponse: &r}
}

func SubscribeResponse(code int32, msg string) *Frame {
	return &Frame{SubscribeGroupResponse: &ResultMessage{StatusCode: code, Message: msg}}
}

func ReceiveEvent(mc *MessageContent) *Frame {
	return &Frame{Receive: mc}
}

func EditData(mc *MessageContent) *Frame {
	return &Frame{EditMessageData: mc}
}

func EditResponse(code int32, msg string) *Frame {
	return &Frame{EditMessageResponse: &ResultMessage{StatusCode: code, Message: msg}}
}

func DeleteEvent(d MessagesData) *Frame {
	return &Frame{DeleteMessageEvent: &d}
}

func DeleteResponse(code int32, msg string) *Frame {
	return &Frame{DeleteMessageResponse: &ResultMessage{StatusCode: code, Message: msg}}
}

func SeenEvent(d MessagesData) *Frame {
	return &Frame{SeenMessagesEvent: &d}
}

func SeenResponse(code int32, msg string) *Frame {
	return &Frame{SeenMessagesResponse: &ResultMessage{StatusCode: code, Message: msg}}
}

func Unsupported(msg string) *Frame {
	return &Frame{UnSupportMessage: &msg}
}
