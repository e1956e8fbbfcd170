// Package migrations embeds Houseflow's SQL schema files into the binary
// so the refresh-token store and the reference database implementation
// can migrate themselves without the .sql files present on disk.
package migrations

import "embed"

//go:embed store/*.sql
var StoreFS embed.FS

//go:embed database/*.sql
var DatabaseFS embed.FS
