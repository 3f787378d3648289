package model

import "renochat/platform"

func InstallDB() {
	db := platform.DB
	if err := db.AutoMigrate(
		&StoreEntry{}); err != nil {
		panic(err)
	}
}
