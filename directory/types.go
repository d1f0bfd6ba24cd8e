package directory

// AddressForm labels how the assistant is expected to address a user.
type AddressForm string

const (
	AddressFormal   AddressForm = "formal"
	AddressInformal AddressForm = "informal"
)

// User is an identity plus preference record. Username is the unique,
// case-sensitive lookup key. ChatID is zero until the user's first message
// is observed; once set it persists across restarts.
type User struct {
	Username     string
	DisplayName  string
	AddressForm  AddressForm
	ChatID       int64
	VoiceEnabled bool
}

// HasChat reports whether a conversation channel has been registered for
// the user.
func (u User) HasChat() bool { return u.ChatID != 0 }
