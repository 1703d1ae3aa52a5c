// Package tlsutil 提供集中式 TLS 配置（TLS 1.2+，仅 AEAD 密码套件），
// 资产拉取与远程推理客户端的出站连接统一经由这里构造。
package tlsutil
