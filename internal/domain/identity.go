package domain

// Identity is a Discord user as seen by this app. Username and
// discriminator together form the key; there is no stable user id.
type Identity struct {
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
}

// String renders the identity the way Discord displays it
func (i Identity) String() string {
	if i.Discriminator == "" || i.Discriminator == "0" {
		return i.Username // Accounts migrated off discriminators report "0"
	}
	return i.Username + "#" + i.Discriminator
}
