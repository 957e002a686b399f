package models

// ModelRegistry lists every gorm model handled by --auto-migrate.
var ModelRegistry = []interface{}{
	&WaitlistEntry{},
}
