// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

/*
Package config loads and validates VolumeVault configuration.

Configuration is layered with Koanf v2. Built-in defaults are loaded first,
then an optional YAML file, then environment variables:

	# config.yaml
	server:
	  port: 3000
	storage:
	  root: /backups
	retention:
	  days: 30
	scheduler:
	  timezone: Europe/Berlin
	  dispatch: direct

The file is looked up at CONFIG_PATH, then config.yaml / config.yml in the
working directory, then /etc/volumevault/. Only explicitly mapped
environment variables are read (see envMappings); the most common are:

	PORT                      HTTP listen port (default 3000)
	BACKUP_STORAGE_PATH       archive destination (default /backups)
	DATABASE_PATH             catalog SQLite file
	RETENTION_DAYS            delete completed backups older than N days (0 keeps all)
	API_TOKEN                 operator bearer token (required)
	INTERNAL_SCHEDULER_TOKEN  token accepted on trigger endpoints
	PREVENT_OVERLAP           refuse a trigger while the same target is running

Validate reports every invalid setting at once, wrapped in
models.ErrConfiguration.
*/
package config
