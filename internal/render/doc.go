// Package render turns evaluated datasets into an inventory: indexed
// hosts with their variables, groups with group variables, and the
// group hierarchy. The output shape follows the Ansible dynamic
// inventory convention (groups with host lists plus _meta.hostvars).
package render
