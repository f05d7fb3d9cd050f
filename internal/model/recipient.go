package model

// Recipient addresses one conversation, usually a phone number in
// international format. Format checks are left to the messaging platform.
type Recipient string

func (r Recipient) String() string { return string(r) }
