// Package cli is the command-line front end of the streaming client.
//
// Every command is a single process run: it opens a session, negotiates
// the suite selected by --cipher, --digest and --mode, authenticates when
// the command needs a license, does its work and logs out. Admin commands
// talk to the gRPC admin service instead and need an operator token.
//
// Commands
//
//	protocols               list the algorithms the server offers
//	register                request a new license
//	login                   check credentials and show the license
//	catalog                 list the media catalog
//	download <media-id>     fetch chunks into a file (alias: play)
//	renew                   restart the license
//	admin ping|stats|license|renew|evict
package cli
