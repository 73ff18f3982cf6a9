// Package serde 实现了与具体线格式无关的序列化协议。
//
// 序列化方向（push）：
//
//	value.Serialize(s) --> Serializer.SerializeXxx / StartStruct ... EndStruct / StartSeq ... EndSeq
//
// 反序列化方向（pull）：
//
//	Deserializer.Deserialize(visitor) --> Visitor.VisitXxx
//	                                  --> VisitSeq    --> SeqBuilder.Element()  ... Finish()
//	                                  --> VisitStruct --> StructBuilder.Member() ... Finish()
//
// 反序列化不经过任何通用的中间值树：每个值都由一个 Binding 生成的 Visitor 直接写入
// 调用方持有的 Place（目标槽位）。记录类型的 Builder 在被询问成员 K 时，返回一个
// 指向字段 K 存储位置的 Visitor，因此嵌套聚合类型可以原地构造。
//
// 具体线格式见 textcodec（自描述文本格式）与 bincodec（紧凑二进制格式）。
package serde
