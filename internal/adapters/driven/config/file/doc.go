// Package file keeps user-editable state under the ragkit home directory:
// config.toml for settings and prompts/ for context-assembly templates.
package file
