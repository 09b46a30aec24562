/*
Package config loads transientspace configuration from YAML, .env files and
the environment, in that order of increasing precedence.

	storage:
	  backend: dynamodb
	  pageSize: 50
	  retryBackoff: 500ms
	  dynamodb:
	    table: transient
	    region: eu-west-1
	log:
	  level: debug
	  format: json

Environment overrides use TRANSIENTSPACE_* names for general settings and the
AWS_* names of the DynamoDB integration for the backend.
*/
package config
