package api

// Version is the library version reported in the User-Agent header and by
// the MCP server.
const Version = "0.1.0"
