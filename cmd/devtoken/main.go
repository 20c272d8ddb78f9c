// Command devtoken mints an access token signed with JWT_SECRET, for
// calling a local instance without the identity service.
//
//	devtoken -user 100 -role ORGANIZER
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/felicity-registration/internal/middleware"
	"github.com/iliyamo/felicity-registration/internal/utils"
)

func main() {
	_ = godotenv.Load()

	user := flag.Uint64("user", 0, "user id placed in the sub claim")
	role := flag.String("role", middleware.RoleParticipant, "PARTICIPANT or ORGANIZER")
	ttl := flag.Int("ttl", 60, "lifetime in minutes")
	flag.Parse()

	r := strings.ToUpper(*role)
	if *user == 0 || (r != middleware.RoleParticipant && r != middleware.RoleOrganizer) {
		flag.Usage()
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(os.Getenv("JWT_SECRET"), *user, r, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("mint token")
	}
	fmt.Println(tok.Token)
}
