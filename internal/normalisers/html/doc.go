// Package html extracts the visible text of web pages and HTML uploads.
package html
