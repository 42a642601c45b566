// Package insightatlas holds the embedded check catalog for the Insight Atlas
// iOS project and compiles it into audit groups.
package insightatlas
