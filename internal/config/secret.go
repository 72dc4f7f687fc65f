package config

import "github.com/zalando/go-keyring"

// keyringService namespaces our entries in the OS credential store.
const keyringService = "bqbatch"

// StorePassword saves a connection password in the OS keyring, keyed by the
// profile name.
func StorePassword(connectionName, password string) error {
	return keyring.Set(keyringService, connectionName, password)
}

// LookupPassword retrieves a stored password. A missing entry is not an
// error; it returns an empty string.
func LookupPassword(connectionName string) (string, error) {
	secret, err := keyring.Get(keyringService, connectionName)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	return secret, err
}

// DeletePassword removes a stored password, ignoring missing entries.
func DeletePassword(connectionName string) error {
	err := keyring.Delete(keyringService, connectionName)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}

// ResolvePassword fills the connection's password from the keyring when the
// profile carries none. Keyring errors degrade to an empty password; the
// server will reject the connection and the user is prompted by the DSN flow.
func ResolvePassword(conn *Connection) {
	if conn.Password != "" {
		return
	}
	if secret, err := LookupPassword(conn.Name); err == nil {
		conn.Password = secret
	}
}
