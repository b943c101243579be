// Package confloader provides configuration loading mechanism.
//
// Configuration is assembled with koanf from layered sources, later
// layers overriding earlier ones:
//
//  1. Default values (struct tags on the target)
//  2. YAML configuration file
//  3. Environment variables (LEXMESH_ prefix, underscores map to dots)
//  4. Explicit maps via LoadMap (flag overrides and tests)
//
// A fsnotify-based Watcher can reload the file layer when the config
// file changes on disk, so log levels and similar runtime knobs can be
// adjusted without a restart.
//
// @design DS-0502
// @adr AD-0501
package confloader
