package models

// AllTables returns a slice of all tables in the database.
func AllTables() []interface{} {
	return []interface{}{
		&Actor{}, &RemoteActor{},
		&Follower{},
		&Note{},
		&Like{}, &Announce{},
		&Notification{}, &Mention{},
		&DeliveryFailure{},
		&Redelivery{},
	}
}
