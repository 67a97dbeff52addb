package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"github.com/v-gu/mysqltc/config"
)

func BuildKafkaConfig(tlsProfile config.Profile, sasl config.Sasl, version string) (*sarama.Config, error) {
	k := sarama.NewConfig()
	if tlsProfile.ClientId != "" {
		k.ClientID = tlsProfile.ClientId
	}

	if tlsProfile.TLS {
		k.Net.TLS.Enable = true
		caCert, err := ioutil.ReadFile(tlsProfile.TLSCAFilePath)
		if err != nil {
			return nil, errors.Wrap(err, "read kafka CA")
		}
		cert, err := tls.LoadX509KeyPair(tlsProfile.TLSCertFilePath, tlsProfile.TLSKeyFilePath)
		if err != nil {
			return nil, errors.Wrap(err, "load kafka client certificate")
		}

		caCertPool := x509.NewCertPool()
		caCertPool.AppendCertsFromPEM(caCert)
		k.Net.TLS.Config = &tls.Config{
			Certificates:       []tls.Certificate{cert},
			RootCAs:            caCertPool,
			InsecureSkipVerify: tlsProfile.TLSNoVerify,
		}
	}

	if sasl.Username != "" {
		k.Net.SASL.Enable = true
		k.Net.SASL.User = sasl.Username
		k.Net.SASL.Password = sasl.Password
	}

	k.Producer.RequiredAcks = sarama.WaitForLocal
	k.Producer.Partitioner = sarama.NewHashPartitioner

	kversion, ok := kafkaVersions[version]
	if !ok {
		return nil, fmt.Errorf("Unknown/unsupported kafka version: %v", version)
	}
	k.Version = kversion
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

var (
	kafkaVersions = map[string]sarama.KafkaVersion{
		"": sarama.V0_10_2_0,

		"0.10.0": sarama.V0_10_0_1,
		"0.10.1": sarama.V0_10_1_0,
		"0.10.2": sarama.V0_10_2_0,
		"0.10":   sarama.V0_10_2_0,

		"0.11.0": sarama.V0_11_0_2,
		"0.11":   sarama.V0_11_0_2,

		"1.0.0": sarama.V1_0_0_0,
		"1.1.0": sarama.V1_1_0_0,
		"2.0.0": sarama.V2_0_0_0,
		"2.1.0": sarama.V2_1_0_0,
		"2.2.0": sarama.V2_2_0_0,
		"2.3.0": sarama.V2_3_0_0,
	}
)
