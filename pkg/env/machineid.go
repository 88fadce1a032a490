// Package env provides host facts shared by configurations.
package env

import (
	"github.com/denisbrodbeck/machineid"
)

// AppID salts the machine ID so the raw host ID is never published.
const AppID = "cloudtest"

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		panic(err)
	}
	return id
}
