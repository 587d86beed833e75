package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/gob"
	"encoding/pem"
	"flag"
	"log"
	"os"
	"path/filepath"
)

var (
	dir  = flag.String("dir", "", "Directory where the keys will be stored")
	bits = flag.Int("bits", 2048, "RSA key size in bits")
)

func writeKey(filename string, key interface{}) {
	file, err := os.Create(filename)
	if err != nil {
		log.Fatalln(err)
	}
	if err = gob.NewEncoder(file).Encode(key); err != nil {
		log.Fatalln(err)
	}
	if err = file.Close(); err != nil {
		log.Fatalln(err)
	}
}

func main() {
	flag.Parse()
	if *dir == "" {
		log.Fatal("no directory was given")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatalln(err)
	}

	writeKey(filepath.Join(*dir, "private.key"), privateKey)
	writeKey(filepath.Join(*dir, "public.key"), &privateKey.PublicKey)

	pemKey := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}

	pemFile, err := os.Create(filepath.Join(*dir, "private.pem"))
	if err != nil {
		log.Fatalln(err)
	}
	if err = pem.Encode(pemFile, pemKey); err != nil {
		log.Fatalln(err)
	}
	if err = pemFile.Close(); err != nil {
		log.Fatalln(err)
	}
}
