package config

import "time"

// DefaultReadyTimeout is used when the file sets no ready_timeout.
const DefaultReadyTimeout = 60 * time.Second

// DefaultConfig returns the values applied before a file is read.
func DefaultConfig() *Config {
	return &Config{
		ReadyTimeout: DefaultReadyTimeout,
		Variables:    map[string]string{},
	}
}

// DefaultConfigYAML is written by `testenv init`.
const DefaultConfigYAML = `# testenv environment
# Start it with: testenv up -f testenv.yaml

name: "%s"

# Start dependencies concurrently instead of in declaration order.
parallel: false

# Run from inside a container that talks to the host daemon.
dind: false

# Upper bound for each dependency to become ready.
ready_timeout: 60s

# Shared by every container. Container env wins on conflicts.
variables:
  # TZ: "UTC"

networks:
  - backend

containers:
  - name: db
    image: postgres
    tag: "16"
    env:
      POSTGRES_PASSWORD: "postgres"
    ports:
      - "5432/tcp"
    network: backend
    probe:
      type: log
      pattern: "database system is ready to accept connections"
  - name: cache
    image: redis
    tag: "7"
    ports:
      - "6379"
    network: backend
    probe:
      type: port
      port: "6379"

logging:
  file_enabled: false
`
