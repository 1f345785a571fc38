package db

import "strings"

// Physical column names avoid words reserved by one of the engines (key,
// reference), so the Go field Key maps to status_key, agent_key and api_key.
var schemaTemplate = []string{
	`CREATE TABLE IF NOT EXISTS scan (
    {{autoid}},
    title VARCHAR(255) NOT NULL,
    asset VARCHAR(255) NULL,
    progress VARCHAR(32) NOT NULL,
    agent_group_id {{bigint}} NULL,
    created_time VARCHAR(64) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS scan_status (
    {{autoid}},
    status_key VARCHAR(255) NOT NULL,
    value {{text}} NOT NULL,
    scan_id {{bigint}} NOT NULL,
    FOREIGN KEY (scan_id) REFERENCES scan(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS asset (
    {{autoid}},
    type VARCHAR(32) NOT NULL,
    scan_id {{bigint}} NULL,
    FOREIGN KEY (scan_id) REFERENCES scan(id)
)`,
	`CREATE TABLE IF NOT EXISTS network (
    id {{bigint}} NOT NULL PRIMARY KEY,
    FOREIGN KEY (id) REFERENCES asset(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS ip_range (
    {{autoid}},
    host VARCHAR(255) NOT NULL,
    mask VARCHAR(64) NOT NULL,
    network_asset_id {{bigint}} NOT NULL,
    FOREIGN KEY (network_asset_id) REFERENCES network(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS urls (
    id {{bigint}} NOT NULL PRIMARY KEY,
    FOREIGN KEY (id) REFERENCES asset(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS link (
    {{autoid}},
    url {{text}} NOT NULL,
    method VARCHAR(16) NOT NULL,
    urls_asset_id {{bigint}} NOT NULL,
    FOREIGN KEY (urls_asset_id) REFERENCES urls(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS android_store (
    id {{bigint}} NOT NULL PRIMARY KEY,
    package_name VARCHAR(255) NOT NULL,
    application_name VARCHAR(255) NOT NULL,
    FOREIGN KEY (id) REFERENCES asset(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS ios_store (
    id {{bigint}} NOT NULL PRIMARY KEY,
    bundle_id VARCHAR(255) NOT NULL,
    application_name VARCHAR(255) NOT NULL,
    FOREIGN KEY (id) REFERENCES asset(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS android_file (
    id {{bigint}} NOT NULL PRIMARY KEY,
    package_name VARCHAR(255) NOT NULL,
    path {{text}} NOT NULL,
    FOREIGN KEY (id) REFERENCES asset(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS ios_file (
    id {{bigint}} NOT NULL PRIMARY KEY,
    bundle_id VARCHAR(255) NOT NULL,
    path {{text}} NOT NULL,
    FOREIGN KEY (id) REFERENCES asset(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS vulnerability (
    {{autoid}},
    title {{text}} NOT NULL,
    short_description {{text}} NOT NULL,
    description {{text}} NOT NULL,
    recommendation {{text}} NOT NULL,
    technical_detail {{text}} NOT NULL,
    risk_rating VARCHAR(32) NOT NULL,
    cvss_v3_vector VARCHAR(255) NOT NULL,
    dna {{text}} NOT NULL,
    location {{text}} NOT NULL,
    scan_id {{bigint}} NOT NULL,
    FOREIGN KEY (scan_id) REFERENCES scan(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS vulnerability_reference (
    {{autoid}},
    title {{text}} NOT NULL,
    url {{text}} NOT NULL,
    vulnerability_id {{bigint}} NOT NULL,
    FOREIGN KEY (vulnerability_id) REFERENCES vulnerability(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS agent (
    {{autoid}},
    agent_key VARCHAR(255) NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS agent_argument (
    {{autoid}},
    name VARCHAR(255) NOT NULL,
    type VARCHAR(255) NOT NULL,
    description {{text}} NOT NULL,
    value {{blob}} NULL,
    agent_id {{bigint}} NOT NULL,
    FOREIGN KEY (agent_id) REFERENCES agent(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS agent_group (
    {{autoid}},
    name VARCHAR(255) NOT NULL,
    description {{text}} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS agent_group_mapping (
    {{autoid}},
    agent_id {{bigint}} NOT NULL,
    agent_group_id {{bigint}} NOT NULL,
    FOREIGN KEY (agent_id) REFERENCES agent(id) ON DELETE CASCADE,
    FOREIGN KEY (agent_group_id) REFERENCES agent_group(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS asset_type (
    {{autoid}},
    type VARCHAR(255) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS agent_group_asset_type (
    agent_group_id {{bigint}} NOT NULL,
    asset_type_id {{bigint}} NOT NULL,
    PRIMARY KEY (agent_group_id, asset_type_id),
    FOREIGN KEY (agent_group_id) REFERENCES agent_group(id) ON DELETE CASCADE,
    FOREIGN KEY (asset_type_id) REFERENCES asset_type(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS api_key (
    id {{bigint}} NOT NULL PRIMARY KEY,
    api_key VARCHAR(255) NOT NULL,
    CHECK (id = 1)
)`,
}

func (d *dialect) schema() []string {
	r := strings.NewReplacer(
		"{{autoid}}", d.autoID,
		"{{bigint}}", d.bigint,
		"{{blob}}", d.blob,
		"{{text}}", d.text,
	)
	out := make([]string, len(schemaTemplate))
	for i, stmt := range schemaTemplate {
		out[i] = r.Replace(stmt)
	}
	return out
}
