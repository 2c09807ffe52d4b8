package domain

import "time"

// Client is a customer that external tickets are opened for.
type Client struct {
	ID        string
	Name      string
	Phone     string
	IsWhats   bool
	Address   *string
	SLAHours  *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ref returns the snapshot embedded in tickets.
func (c *Client) Ref() ClientRef {
	return ClientRef{
		ID:      c.ID,
		Name:    c.Name,
		Phone:   c.Phone,
		IsWhats: c.IsWhats,
		Address: c.Address,
	}
}
