/*
Package middleware provides decorators over ports.PageStore.

  - Encryption seals each page with AES-GCM, so that a leaked store reveals no values.
    Keys rotate without downtime through fallback keys.
  - Integrity adds an HMAC-SHA256 over each page; a page whose MAC does not verify is
    reported as not found, since it cannot prove it was issued by this server.

Both bind the page to its scope and name, so stored pages cannot be swapped between
sessions. They compose with Chain.
*/
package middleware
