package models

import "fmt"

// Address is a Dutch postal address identified by postcode and house number.
type Address struct {
	Postcode    string // Postcode in the 1234AB form.
	HouseNumber int    // HouseNumber without additions.
}

// String returns the address as "1234AB 1".
func (a Address) String() string {
	return fmt.Sprintf("%s %d", a.Postcode, a.HouseNumber)
}

// Query returns a free-text form of the address for providers that search by text.
func (a Address) Query() string {
	return a.String() + ", Netherlands"
}

// Task represents a geocoding task with an ID and an associated address.
type Task struct {
	ID      int     // ID is the unique identifier for the task.
	Address Address // Address is the location to be geocoded.
}
